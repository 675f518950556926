// Package cloudinit builds the user-data handed to new servers.
//
// Hetzner passes user-data straight to cloud-init, so a shell or python
// script is run once on first boot. When an SSH key is supplied the script
// is wrapped so the key lands in root's authorized_keys before anything
// else runs.
//
// See https://cloudinit.readthedocs.io/en/latest/explanation/format.html#user-data-script
package cloudinit

import (
	"fmt"
	"os"
	"strings"
)

// Runtime selects the interpreter of a user script.
type Runtime string

const (
	RuntimeShell  Runtime = "shell"
	RuntimePython Runtime = "python"
)

const (
	shellShebang  = "#!/bin/bash\n"
	pythonShebang = "#!/usr/bin/env python3\n"

	// PythonScriptPath is where a wrapped python script is written on the server.
	PythonScriptPath = "/tmp/ephetzner_user_script.py"
)

// Script is a user-supplied first-boot script.
type Script struct {
	Runtime Runtime
	Path    string
	Content string
}

// ParseRuntime validates a runtime name. Empty means shell.
func ParseRuntime(s string) (Runtime, error) {
	switch Runtime(strings.ToLower(strings.TrimSpace(s))) {
	case "", RuntimeShell:
		return RuntimeShell, nil
	case RuntimePython:
		return RuntimePython, nil
	default:
		return "", fmt.Errorf("unsupported script runtime %q (must be shell or python)", s)
	}
}

// LoadScript reads the script at path. A shebang matching the runtime is
// added when the file has none.
func LoadScript(path, runtime string) (*Script, error) {
	rt, err := ParseRuntime(runtime)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read script %s: %w", path, err)
	}

	content := string(data)
	if !strings.HasPrefix(content, "#!") {
		header := shellShebang
		if rt == RuntimePython {
			header = pythonShebang
		}
		content = header + content
	}

	return &Script{Runtime: rt, Path: path, Content: content}, nil
}

// ComposeUserData returns the user-data for a new server.
//
// Without an SSH key the script content is returned unchanged ("" when there
// is no script). With a key the result is a bash script that installs the key
// for root and then runs the user script: shell scripts are inlined without
// their shebang, python scripts are written to PythonScriptPath and executed.
func ComposeUserData(script *Script, sshKey string) string {
	sshKey = strings.TrimSpace(sshKey)
	if sshKey == "" {
		if script == nil {
			return ""
		}
		return script.Content
	}

	var b strings.Builder
	b.WriteString(shellShebang)
	b.WriteString("mkdir -p /root/.ssh\n")
	b.WriteString("chmod 700 /root/.ssh\n")
	b.WriteString("touch /root/.ssh/authorized_keys\n")
	fmt.Fprintf(&b, "grep -qxF %s /root/.ssh/authorized_keys || echo %s >> /root/.ssh/authorized_keys\n",
		singleQuote(sshKey), singleQuote(sshKey))
	b.WriteString("chmod 600 /root/.ssh/authorized_keys\n")

	if script == nil || strings.TrimSpace(script.Content) == "" {
		return b.String()
	}

	switch script.Runtime {
	case RuntimePython:
		fmt.Fprintf(&b, "cat <<'PYCODE' >%s\n", PythonScriptPath)
		b.WriteString(ensureNewline(script.Content))
		b.WriteString("PYCODE\n")
		fmt.Fprintf(&b, "python3 %s\n", PythonScriptPath)
	default:
		b.WriteString(ensureNewline(stripShebang(script.Content)))
	}

	return b.String()
}

func stripShebang(content string) string {
	if !strings.HasPrefix(content, "#!") {
		return content
	}
	if i := strings.IndexByte(content, '\n'); i >= 0 {
		return content[i+1:]
	}
	return ""
}

func ensureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// singleQuote quotes s for bash. Public keys never contain quotes, but
// comments are user controlled.
func singleQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
