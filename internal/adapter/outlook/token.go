package outlook

import (
	"encoding/json"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

func derefStr(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefBool(b *bool) bool {
	return b != nil && *b
}

func readToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{}
	if err := json.Unmarshal(data, tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func writeToken(path string, tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// persistingSource writes every new access token back to path so the next
// run starts from the refreshed token instead of the original grant.
type persistingSource struct {
	src  oauth2.TokenSource
	path string

	mu   sync.Mutex
	last string
}

func newPersistingSource(src oauth2.TokenSource, path string, initial *oauth2.Token) *persistingSource {
	return &persistingSource{src: src, path: path, last: initial.AccessToken}
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.src.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if err := writeToken(p.path, tok); err != nil {
			log.Warn("could not persist refreshed token", "file", p.path, "err", err)
		} else {
			log.Debug("refreshed outlook token saved", "file", p.path)
		}
	}
	return tok, nil
}
