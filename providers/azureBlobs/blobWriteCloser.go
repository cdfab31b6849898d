package azureBlobs

import (
	"io"
	"sync"
)

// blobWriteCloser feeds a pipe into a background upload. Close waits for the
// upload and reports its error.
type blobWriteCloser struct {
	w   *io.PipeWriter
	wg  *sync.WaitGroup
	err error
}

// Close implements io.WriteCloser.
func (w *blobWriteCloser) Close() error {
	err := w.w.Close()
	w.wg.Wait()

	if nil != w.err {
		return w.err
	}

	return err
}

// Write implements io.WriteCloser.
func (w *blobWriteCloser) Write(p []byte) (n int, err error) {
	return w.w.Write(p)
}
