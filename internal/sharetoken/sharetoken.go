// Package sharetoken implements the operator tool that issues and inspects
// share capabilities outside the gateway, e.g. to debug a link a user
// reports as broken.
package sharetoken

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/drivegate/internal/common"
	"github.com/dmitrijs2005/drivegate/internal/server/auth"
	"golang.org/x/term"
)

// SecretEnv holds the link secret; without it the tool prompts for one.
const SecretEnv = "DRIVEGATE_LINK_SECRET"

// Test seams.
var (
	lookupEnv    = os.LookupEnv
	readPassword = term.ReadPassword
)

const usage = `usage:
  sharetoken issue -subject USER -resource ID [-permission read|write|owner] [-ttl SECONDS]
  sharetoken inspect -token TOKEN [-at RFC3339]`

// Run executes one subcommand. Results go to stdout, prompts to stderr.
func Run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}
	switch args[0] {
	case "issue":
		return issue(args[1:], stdout, stderr)
	case "inspect":
		return inspect(args[1:], stdout, stderr)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func issue(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("issue", flag.ContinueOnError)
	fs.SetOutput(stderr)
	subject := fs.String("subject", "", "grantor user id")
	resource := fs.String("resource", "", "shared object id")
	permission := fs.String("permission", common.PermissionRead, "granted permission")
	ttl := fs.Int("ttl", 3600, "validity in seconds")
	if err := fs.Parse(args); err != nil {
		return err
	}

	codec, err := newCodec(stderr)
	if err != nil {
		return err
	}
	token, err := codec.Issue(*subject, *resource, *permission, *ttl)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, token)
	return err
}

func inspect(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	fs.SetOutput(stderr)
	token := fs.String("token", "", "share token")
	at := fs.String("at", "", "verify as of this RFC3339 time instead of now")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return errors.New("-token is required")
	}

	now := time.Now()
	if *at != "" {
		t, err := time.Parse(time.RFC3339, *at)
		if err != nil {
			return fmt.Errorf("-at: %w", err)
		}
		now = t
	}

	codec, err := newCodec(stderr)
	if err != nil {
		return err
	}
	c, err := codec.Verify(*token, now)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

func newCodec(stderr io.Writer) (*auth.Codec, error) {
	secret, err := linkSecret(stderr)
	if err != nil {
		return nil, err
	}
	signer, err := auth.NewSigner(secret)
	if err != nil {
		return nil, err
	}
	return auth.NewCodec(signer), nil
}

// linkSecret reads the secret from the environment, or from the terminal
// without echo.
func linkSecret(stderr io.Writer) ([]byte, error) {
	if v, ok := lookupEnv(SecretEnv); ok && v != "" {
		return []byte(v), nil
	}
	if _, err := fmt.Fprint(stderr, "Link secret: "); err != nil {
		return nil, err
	}
	secret, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(stderr)
	if err != nil {
		return nil, fmt.Errorf("read link secret: %w", err)
	}
	return secret, nil
}
