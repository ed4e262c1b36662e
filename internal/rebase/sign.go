package rebase

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"

	"al.essio.dev/pkg/shellescape"
	"go.abhg.dev/log/silog"
)

// ExternalSign invokes the configured signing command as a subprocess,
// piping content on stdin and returning whatever it writes to stdout as
// the signature. The command is run through the shell because a
// configured signing command commonly carries its own arguments (e.g.
// "ssh-keygen -Y sign -n git -f key.pub"), the same compound-command
// shape Git's own gpg.program config value accepts.
func ExternalSign(ctx context.Context, log *silog.Logger, command string, content []byte) ([]byte, error) {
	if command == "" {
		return nil, fmt.Errorf("sign: no signing command configured")
	}
	if log == nil {
		log = silog.Nop()
	}
	log.Debug("invoking signing helper", "cmd", shellescape.Quote(command))

	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Stdin = bytes.NewReader(content)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := stderr.String(); msg != "" {
			return nil, fmt.Errorf("signing helper %q: %w: %s", command, err, msg)
		}
		return nil, fmt.Errorf("signing helper %q: %w", command, err)
	}
	return bytes.TrimRight(out.Bytes(), "\n"), nil
}
