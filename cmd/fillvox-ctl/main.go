package main

import (
	"fmt"
	"os"
	"sort"

	cli "github.com/spf13/pflag"

	"fillvox/internal/ipc"
)

func main() {
	socket := cli.StringP("socket", "S", ipc.DefaultSocketPath, "Control socket path")
	cli.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: fillvox-ctl [--socket path] cancel|status\n")
		cli.PrintDefaults()
	}
	cli.Parse()

	cmd := ipc.CmdStatus
	if cli.NArg() > 0 {
		cmd = cli.Arg(0)
	}

	reply, err := ipc.Send(*socket, cmd)
	if err != nil {
		fmt.Println("fillvox-daemon not running:", err)
		os.Exit(1)
	}
	if !reply.OK {
		fmt.Println("error:", reply.Error)
		os.Exit(1)
	}

	switch cmd {
	case ipc.CmdCancel:
		fmt.Println("cancelled")
	default:
		fmt.Printf("%s (%d/%d)\n", reply.State, reply.Index, reply.Total)
		labels := make([]string, 0, len(reply.Answers))
		for l := range reply.Answers {
			labels = append(labels, l)
		}
		sort.Strings(labels)
		for _, l := range labels {
			fmt.Printf("  %s: %s\n", l, reply.Answers[l])
		}
	}
}
