package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/golang/glog"
	"github.com/rokeller/hashup/partition"
	"github.com/rokeller/hashup/prefix"
)

type cmdResolve struct {
	cmdBase

	generator *prefix.Generator
	partition partition.Partition
	names     []string
	in        io.Reader
	out       io.Writer
}

// Run implements Command.
func (c *cmdResolve) Run(ctx context.Context) {
	defer c.signalFinished()

	if len(c.names) > 0 {
		for _, name := range c.names {
			c.resolve(name)
		}
		return
	}

	// Without arguments, names are read from the input, one per line.
	scanner := bufio.NewScanner(c.in)
	for scanner.Scan() && nil == ctx.Err() {
		if name := strings.TrimRight(scanner.Text(), "\r"); "" != name {
			c.resolve(name)
		}
	}
	if err := scanner.Err(); nil != err {
		glog.Errorf("Failed to read file names: %v", err)
		c.exitCode = 1
	}
}

func (c *cmdResolve) resolve(name string) {
	res, err := c.generator.Generate(name)
	if nil != err {
		glog.Errorf("%v", err)
		c.exitCode = 1
		return
	}

	fmt.Fprintln(c.out, c.partition.Join(res.Path()))
}

func newResolveCommand(args []string) Command {
	s := loadSettings(args)

	resolveFlags := flag.NewFlagSet("resolve", flag.ExitOnError)
	addCommonArgs(resolveFlags)
	addPrefixFlags(resolveFlags, &s.Prefix)
	addPartitionFlags(resolveFlags, &s.Partition)
	resolveFlags.Parse(args)

	generator, err := prefix.NewGenerator(s.Prefix)
	if nil != err {
		glog.Exitf("%v", err)
	}

	p, err := newPartition(s)
	if nil != err {
		glog.Exitf("Invalid partition: %v", err)
	}

	return &cmdResolve{
		cmdBase: cmdBase{
			settings: s,
			finished: make(chan bool),
		},
		generator: generator,
		partition: p,
		names:     resolveFlags.Args(),
		in:        os.Stdin,
		out:       os.Stdout,
	}
}
