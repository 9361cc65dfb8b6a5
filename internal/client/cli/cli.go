// Package cli implements registactl, a command-line client for the query
// and ingest channels.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/alecthomas/kong"
	"github.com/dmitrijs2005/registadb/internal/client"
	"github.com/dmitrijs2005/registadb/internal/server/auth"
	"github.com/dmitrijs2005/registadb/internal/server/models"
)

// payloadFlags selects the entry payload. Exactly one variant may be given.
type payloadFlags struct {
	Blob     string            `short:"b" xor:"payload" help:"Scalar payload."`
	List     []string          `short:"l" xor:"payload" help:"List payload, one value per flag or comma separated."`
	Map      map[string]string `short:"m" xor:"payload" help:"Map payload as key=value pairs."`
	Metadata map[string]string `help:"Metadata annotations as key=value pairs."`
}

type cmdCreate struct {
	ID      uint64       `help:"Client-chosen identifier; 0 lets the server assign one."`
	Payload payloadFlags `embed:""`
}

type cmdUpdate struct {
	ID      uint64       `arg:"" help:"Identifier of the entry to update."`
	Payload payloadFlags `embed:""`
}

type cli struct {
	QueryAddr   string        `default:"localhost:5556" env:"REGISTADB_QUERY_ADDR" help:"Query channel address."`
	IngestURL   string        `default:"ws://localhost:5555/ingest" env:"REGISTADB_INGEST_URL" help:"Ingest channel URL."`
	AccessToken string        `name:"token" env:"REGISTADB_TOKEN" help:"Bearer token sent to the server."`
	Timeout     time.Duration `default:"10s" help:"Timeout for a single request."`

	Get struct {
		ID uint64 `arg:"" help:"Entry identifier."`
	} `cmd:"" help:"Read an entry."`
	Create cmdCreate `cmd:"" help:"Create an entry."`
	Update cmdUpdate `cmd:"" help:"Replace the payload of an entry, keeping its creation time."`
	Delete struct {
		ID uint64 `arg:"" help:"Entry identifier."`
	} `cmd:"" help:"Delete an entry."`
	Push struct {
		Values   []string          `arg:"" help:"Scalar payloads; each becomes one entry."`
		Metadata map[string]string `help:"Metadata attached to every pushed entry."`
	} `cmd:"" help:"Stream scalar entries to the ingest channel without waiting for replies."`
	IssueToken struct {
		Subject string        `arg:"" help:"Token subject."`
		Secret  string        `required:"" env:"REGISTADB_SECRET" help:"Server secret key."`
		TTL     time.Duration `name:"ttl" default:"24h" help:"Token lifetime."`
	} `cmd:"" help:"Sign a bearer token with the server secret."`
}

// Config holds process-level dependencies so Run can be driven from tests.
type Config struct {
	Name        string
	Description string
	Exit        func(int)
	Stdin       io.Reader
	Stdout      io.Writer
	Stderr      io.Writer
}

// NewConfig returns a Config bound to the process stdio.
func NewConfig() *Config {
	return &Config{
		Name:        "registactl",
		Description: "Command-line client for RegistaDB.",
		Exit:        os.Exit,
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
	}
}

var errNoPayload = errors.New("one of --blob, --list or --map is required")

// Run parses args and executes the selected command. rc is the process
// exit code: 0 on OK, 1 on a non-OK response or failure, 2 on usage errors.
func Run(ctx context.Context, args []string, config *Config) (rc int, err error) {
	var c cli

	parser, err := kong.New(&c,
		kong.Name(config.Name),
		kong.Description(config.Description),
		kong.Exit(config.Exit),
		kong.Writers(config.Stdout, config.Stderr),
		kong.UsageOnError(),
	)
	if err != nil {
		return 2, err
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(config.Stderr, "%s: error: %v\n", config.Name, err)
		return 2, err
	}

	switch kctx.Command() {
	case "issue-token <subject>":
		tok, err := auth.GenerateToken(c.IssueToken.Subject, []byte(c.IssueToken.Secret), c.IssueToken.TTL)
		if err != nil {
			return 1, err
		}
		fmt.Fprintln(config.Stdout, tok)
		return 0, nil
	case "push <values>":
		return c.push(ctx, config)
	}

	req, err := c.request(kctx.Command())
	if err != nil {
		fmt.Fprintf(config.Stderr, "%s: error: %v\n", config.Name, err)
		return 2, err
	}

	qc, err := client.NewQueryClient(c.QueryAddr, c.AccessToken)
	if err != nil {
		return 1, err
	}
	defer qc.Close()

	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	resp, err := qc.Execute(ctx, req)
	if err != nil {
		fmt.Fprintf(config.Stderr, "%s: %v\n", config.Name, err)
		return 1, err
	}

	if err := printResponse(config.Stdout, resp); err != nil {
		return 1, err
	}
	if !resp.OK() {
		return 1, nil
	}
	return 0, nil
}

func (c *cli) request(command string) (*models.Request, error) {
	switch command {
	case "get <id>":
		return &models.Request{Op: models.OpRead, ID: c.Get.ID}, nil
	case "delete <id>":
		return &models.Request{Op: models.OpDelete, ID: c.Delete.ID}, nil
	case "create":
		e, err := c.Create.Payload.entry()
		if err != nil {
			return nil, err
		}
		e.ID = c.Create.ID
		return &models.Request{Op: models.OpCreate, Entry: e}, nil
	case "update <id>":
		e, err := c.Update.Payload.entry()
		if err != nil {
			return nil, err
		}
		return &models.Request{Op: models.OpUpdate, ID: c.Update.ID, Entry: e}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", command)
	}
}

func (c *cli) push(ctx context.Context, config *Config) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.Timeout)
	defer cancel()

	p, err := client.DialIngest(ctx, c.IngestURL, c.AccessToken)
	if err != nil {
		fmt.Fprintf(config.Stderr, "%s: %v\n", config.Name, err)
		return 1, err
	}

	for _, v := range c.Push.Values {
		if err := p.Push(&models.Entry{Payload: models.Blob(v), Metadata: c.Push.Metadata}); err != nil {
			_ = p.Close()
			return 1, err
		}
	}
	if err := p.Close(); err != nil {
		return 1, err
	}

	fmt.Fprintf(config.Stdout, "pushed %d entries\n", len(c.Push.Values))
	return 0, nil
}

func (p payloadFlags) entry() (*models.Entry, error) {
	e := &models.Entry{Metadata: p.Metadata}
	switch {
	case p.List != nil:
		list := make(models.List, len(p.List))
		for i, v := range p.List {
			list[i] = []byte(v)
		}
		e.Payload = list
	case p.Map != nil:
		keys := make([]string, 0, len(p.Map))
		for k := range p.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := make(models.Map, 0, len(keys))
		for _, k := range keys {
			m = append(m, models.Pair{Key: k, Value: []byte(p.Map[k])})
		}
		e.Payload = m
	case p.Blob != "":
		e.Payload = models.Blob(p.Blob)
	default:
		return nil, errNoPayload
	}
	return e, nil
}

type entryView struct {
	ID        uint64            `json:"id"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
	Type      string            `json:"type"`
	Payload   any               `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type responseView struct {
	Status  string     `json:"status"`
	Message string     `json:"message,omitempty"`
	Entry   *entryView `json:"entry,omitempty"`
}

// printResponse writes resp as indented JSON. Scalars are shown as strings.
func printResponse(w io.Writer, resp *models.Response) error {
	v := responseView{Status: resp.Status.String(), Message: resp.Message}
	if e := resp.Entry; e != nil {
		ev := &entryView{
			ID:        e.ID,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
			Type:      models.KindOf(e.Payload).String(),
			Metadata:  e.Metadata,
		}
		switch p := e.Payload.(type) {
		case models.Blob:
			ev.Payload = string(p)
		case models.List:
			values := make([]string, len(p))
			for i, b := range p {
				values[i] = string(b)
			}
			ev.Payload = values
		case models.Map:
			pairs := make([][2]string, len(p))
			for i, pair := range p {
				pairs[i] = [2]string{pair.Key, string(pair.Value)}
			}
			ev.Payload = pairs
		}
		v.Entry = ev
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
