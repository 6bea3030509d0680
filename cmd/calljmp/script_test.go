package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"

	"rsc.io/script"
	"rsc.io/script/scripttest"
)

// TestScript drives the CLI end-to-end against testdata/script/*.txtar.
// Each archive's script runs a sequence of "calljmp <args>" invocations
// against the files laid out in the archive, in a throwaway work directory
// per script.
func TestScript(t *testing.T) {
	engine := &script.Engine{
		Cmds:  script.DefaultCmds(),
		Conds: script.DefaultConds(),
	}
	engine.Cmds["calljmp"] = script.Command(
		script.CmdUsage{
			Summary: "run the calljmp CLI in-process",
			Args:    "args...",
		},
		runCalljmpScriptCmd,
	)

	scripttest.Run(t, context.Background(), engine, os.Environ(), "testdata/script/*.txtar")
}

// runCalljmpScriptCmd executes rootCmd in-process with s.Dir as the working
// directory, the way "calljmp" would run from a shell inside that
// directory. Exit codes surface as an error so "! calljmp ..." scripts work.
//
// The commands write their output through fmt.Print* and internal/ui's Log*
// helpers straight to the process's os.Stdout/os.Stderr, so SetOut/SetErr
// would only catch cobra's own output. The real file descriptors are swapped for pipes
// around Execute and drained concurrently instead.
func runCalljmpScriptCmd(s *script.State, args ...string) (script.WaitFunc, error) {
	prevWD, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	if err := os.Chdir(s.Getwd()); err != nil {
		return nil, err
	}

	prevStdout, prevStderr := os.Stdout, os.Stderr
	stdoutR, stdoutW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	stderrR, stderrW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	os.Stdout, os.Stderr = stdoutW, stderrW

	var stdoutBuf, stderrBuf bytes.Buffer
	copied := make(chan struct{})
	go func() {
		defer close(copied)
		io.Copy(&stdoutBuf, stdoutR)
	}()
	copiedErr := make(chan struct{})
	go func() {
		defer close(copiedErr)
		io.Copy(&stderrBuf, stderrR)
	}()

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdoutW)
	rootCmd.SetErr(stderrW)

	runErr := rootCmd.Execute()

	stdoutW.Close()
	stderrW.Close()
	<-copied
	<-copiedErr
	os.Stdout, os.Stderr = prevStdout, prevStderr

	if err := os.Chdir(prevWD); err != nil {
		return nil, err
	}

	stdout, stderr := stdoutBuf.String(), stderrBuf.String()
	return func(*script.State) (string, string, error) {
		if runErr != nil {
			return stdout, stderr, fmt.Errorf("calljmp %s: %w", strings.Join(args, " "), runErr)
		}
		return stdout, stderr, nil
	}, nil
}
