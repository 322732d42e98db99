package main

import (
	"flag"
	"fmt"
	"io"
	"os"
)

type cli struct {
	args []string
	out  io.Writer
}

type command interface {
	Name() string
	Help() string
	Run(out io.Writer) error
	Register(*flag.FlagSet)
}

func (c *cli) run() int {
	cmdName, args := parseArgs(c.args)
	if cmdName == "" {
		printUsage(c.out)
		return errorExitCode
	}

	for _, cmd := range commands {
		if cmd.Name() == cmdName {
			flags := flag.NewFlagSet(cmdName, flag.ContinueOnError)
			flags.SetOutput(c.out)
			cmd.Register(flags)
			if err := flags.Parse(args); err != nil {
				return errorExitCode
			}
			if err := cmd.Run(c.out); err != nil {
				fmt.Fprintf(c.out, "Command failed: %v\n", err)
				return errorExitCode
			}
			return successExitCode
		}
	}

	printUsage(c.out)
	return errorExitCode
}

var (
	successExitCode = 0
	errorExitCode   = 1
	commands        []command
)

func init() {
	commands = []command{&runCommand{}, &showCommand{}}
}

func main() {
	c := cli{
		args: os.Args,
		out:  os.Stdout,
	}
	os.Exit(c.run())
}

func parseArgs(args []string) (string, []string) {
	if len(args) < 2 {
		return "", nil
	}
	return args[1], args[2:]
}

func printUsage(out io.Writer) {
	fmt.Fprintln(out, "Augmentbench runs augment streams over synthetic audio")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Usage: augmentbench <command>")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Commands:")
	for _, cmd := range commands {
		fmt.Fprintf(out, "\t%s\t%s\n", cmd.Name(), cmd.Help())
	}
}
