package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/golang/glog"
)

func main() {
	flag.Usage = usage
	cmd := parseCommand()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go cmd.Run(ctx)

	select {
	case s := <-c:
		glog.Warningf("Got signal %v, stopping ...", s)
		cancel()
		<-cmd.Finished()
	case <-cmd.Finished():
	}

	cmd.Stop()
	glog.Flush()
	os.Exit(cmd.ExitCode())
}

func usage() {
	out := flag.CommandLine.Output()
	fmt.Fprintf(out, "Usage: %s [logging flags] <command> [flags] [args]\n\n", os.Args[0])
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  upload     upload the files of a directory under hash-derived prefixes")
	fmt.Fprintln(out, "  resolve    print the blob path the given file names are uploaded to")
	fmt.Fprintln(out, "  list       print the manifest of uploaded files")
	fmt.Fprintln(out, "  provision  create the storage account and container")
	fmt.Fprintln(out, "\nRun '<command> -h' for the flags of a command. Logging flags:")
	flag.PrintDefaults()
}
