package rest

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/registadb/internal/server/models"
)

// entryJSON is the JSON shape of an entry. Type names the payload variant;
// only the matching field may be populated. Byte fields are base64.
type entryJSON struct {
	ID        uint64            `json:"id,omitempty"`
	CreatedAt *time.Time        `json:"created_at,omitempty"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
	Type      string            `json:"type,omitempty"`
	Blob      []byte            `json:"blob,omitempty"`
	List      [][]byte          `json:"list,omitempty"`
	Map       []pairJSON        `json:"map,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

type pairJSON struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

type responseJSON struct {
	Status  string     `json:"status"`
	Message string     `json:"message,omitempty"`
	Entry   *entryJSON `json:"entry,omitempty"`
}

type pageJSON struct {
	Entries []*entryJSON `json:"entries"`
	Next    string       `json:"next,omitempty"`
}

func toJSON(e *models.Entry) *entryJSON {
	if e == nil {
		return nil
	}
	out := &entryJSON{ID: e.ID, Metadata: e.Metadata}
	if !e.CreatedAt.IsZero() {
		t := e.CreatedAt
		out.CreatedAt = &t
	}
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		out.UpdatedAt = &t
	}

	switch p := e.Payload.(type) {
	case models.Blob:
		out.Type, out.Blob = models.KindBlob.String(), p
	case models.List:
		out.Type, out.List = models.KindList.String(), p
	case models.Map:
		out.Type = models.KindMap.String()
		out.Map = make([]pairJSON, len(p))
		for i, pair := range p {
			out.Map[i] = pairJSON{Key: pair.Key, Value: pair.Value}
		}
	}
	return out
}

// fromJSON converts a request body into an entry. A declared type that does
// not match the populated variant is an error. Timestamps are ignored; the
// server assigns them.
func fromJSON(in *entryJSON) (*models.Entry, error) {
	populated := make([]string, 0, 1)
	if in.Blob != nil {
		populated = append(populated, models.KindBlob.String())
	}
	if in.List != nil {
		populated = append(populated, models.KindList.String())
	}
	if in.Map != nil {
		populated = append(populated, models.KindMap.String())
	}
	if len(populated) > 1 {
		return nil, fmt.Errorf("payload has several variants: %v", populated)
	}

	kind := in.Type
	if kind == "" && len(populated) == 1 {
		kind = populated[0]
	}
	if len(populated) == 1 && populated[0] != kind {
		return nil, fmt.Errorf("payload type %q does not match populated %q", kind, populated[0])
	}

	e := &models.Entry{ID: in.ID, Metadata: in.Metadata}
	switch kind {
	case "":
	case models.KindBlob.String():
		e.Payload = models.Blob(append([]byte{}, in.Blob...))
	case models.KindList.String():
		list := models.List{}
		for _, v := range in.List {
			list = append(list, append([]byte{}, v...))
		}
		e.Payload = list
	case models.KindMap.String():
		m := models.Map{}
		for _, p := range in.Map {
			m = append(m, models.Pair{Key: p.Key, Value: append([]byte{}, p.Value...)})
		}
		e.Payload = m
	default:
		return nil, fmt.Errorf("unknown payload type %q", kind)
	}
	return e, nil
}
