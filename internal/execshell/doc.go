// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner with zap logging and lifecycle events,
// OSCommandRunner executes processes through os/exec, and the message
// formatter turns git invocations issued by vendman into readable progress
// lines. Everything that talks to the git executable goes through here so it
// can be replaced by recording runners in tests.
package execshell
