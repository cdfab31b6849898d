package main

import (
	"context"
	"io/fs"
	"sync"
	"sync/atomic"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/rokeller/hashup/domain"
	"github.com/rokeller/hashup/uploading"
)

type uploadStats struct {
	uploaded  atomic.Int64
	existing  atomic.Int64
	failed    atomic.Int64
	invalid   atomic.Int64
	conflicts atomic.Int64
}

type uploadingVisitor struct {
	ctx            context.Context
	u              *uploading.Uploader
	abortOnInvalid bool
	wg             *sync.WaitGroup
	queue          chan domain.Entry
	aborted        *atomic.Bool
	stats          *uploadStats
}

func NewUploadingVisitor(
	ctx context.Context,
	u *uploading.Uploader,
	degreeOfParallelism int,
	abortOnInvalid bool,
) uploadingVisitor {
	v := uploadingVisitor{
		ctx:            ctx,
		u:              u,
		abortOnInvalid: abortOnInvalid,
		wg:             &sync.WaitGroup{},
		queue:          make(chan domain.Entry, degreeOfParallelism*2),
		aborted:        &atomic.Bool{},
		stats:          &uploadStats{},
	}

	for i := 0; i < degreeOfParallelism; i++ {
		v.wg.Add(1)
		go func(id int) {
			defer v.wg.Done()
			v.handleUploadQueue(id)
		}(i)
	}

	return v
}

// Complete waits for all queued uploads to finish.
func (v uploadingVisitor) Complete() {
	close(v.queue)
	v.wg.Wait()
}

// Aborted reports whether queuing stopped because of an invalid file name.
func (v uploadingVisitor) Aborted() bool {
	return v.aborted.Load()
}

func (v uploadingVisitor) VisitDir(relPath string, info fs.FileInfo) {
	// intentionally left blank
}

func (v uploadingVisitor) VisitFile(relPath string, info fs.FileInfo) {
	if v.aborted.Load() || nil != v.ctx.Err() {
		return
	}

	entry := domain.Entry{
		RelPath: relPath,
		EntryMetadata: domain.EntryMetadata{
			Size:      info.Size(),
			Timestamp: info.ModTime().Unix(),
		},
	}

	// Claim the blob path before queuing, so that an abort stops the batch
	// before any further file is handed to the workers.
	if _, err := v.u.Claim(entry); nil != err {
		if uploading.IsInvalidFilename(err) {
			v.stats.invalid.Add(1)
		} else if uploading.IsPathConflict(err) {
			v.stats.conflicts.Add(1)
		}

		if v.abortOnInvalid {
			glog.Errorf("Aborting at file '%s': %v", relPath, err)
			v.aborted.Store(true)
		} else {
			glog.Warningf("Skipping file '%s': %v", relPath, err)
		}
		return
	}

	select {
	case v.queue <- entry:
	case <-v.ctx.Done():
	}
}

func (v uploadingVisitor) handleUploadQueue(id int) {
	numSuccessful, numFailed := 0, 0

	for entry := range v.queue {
		if nil != v.ctx.Err() {
			// Drain the queue without uploading once cancelled.
			continue
		}

		glog.V(1).Infof("[Uploader-%d] Upload file '%s' ...", id, entry.RelPath)
		blobPath, err := v.u.Upload(v.ctx, entry)
		switch {
		case nil == err:
			numSuccessful++
			v.stats.uploaded.Add(1)
			glog.V(1).Infof("[Uploader-%d] '%s' -> '%s'", id, entry.RelPath, blobPath)

		case errors.Is(err, uploading.ErrExists):
			v.stats.existing.Add(1)
			glog.V(1).Infof("[Uploader-%d] '%s' already exists, skipped.", id, blobPath)

		default:
			numFailed++
			v.stats.failed.Add(1)
			glog.Errorf("[Uploader-%d] Upload of file '%s' failed: %v", id, entry.RelPath, err)
		}
	}

	glog.Infof("[Uploader-%d] Finished. Successfully uploaded %d file(s), failed to upload %d file(s).",
		id, numSuccessful, numFailed)
}
