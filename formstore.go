package ahadi

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yanun0323/errors"
)

// FormKeyPrefix prefixes every persisted form key.
const FormKeyPrefix = "ahadi_form_data_"

// FormData is a draft form's field values.
type FormData map[string]any

// FormStore persists draft form data as JSON files in one directory, so a
// form interrupted by an expired session can be restored after login.
type FormStore struct {
	dir string
	log Logger
}

func NewFormStore(dir string, log Logger) *FormStore {
	if log == nil {
		log = NopLogger()
	}
	return &FormStore{dir: dir, log: log}
}

func (s *FormStore) file(formID string) string {
	return filepath.Join(s.dir, FormKeyPrefix+url.PathEscape(formID)+".json")
}

// Save writes data under formID, replacing any previous draft.
func (s *FormStore) Save(formID string, data FormData) error {
	if formID == "" {
		return errors.New("form id is required")
	}
	b, err := json.Marshal(data)
	if err != nil {
		return errors.Wrap(err, "marshal form data")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return errors.Wrap(err, "create form directory")
	}
	tmp := s.file(formID) + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return errors.Wrap(err, "write form data").With("form", formID)
	}
	if err := os.Rename(tmp, s.file(formID)); err != nil {
		return errors.Wrap(err, "write form data").With("form", formID)
	}
	return nil
}

// Get returns the draft saved under formID. Missing or unreadable drafts
// report false.
func (s *FormStore) Get(formID string) (FormData, bool) {
	b, err := os.ReadFile(s.file(formID))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warnf("ahadi: read form data %q: %v", formID, err)
		}
		return nil, false
	}
	var data FormData
	if err := json.Unmarshal(b, &data); err != nil || data == nil {
		s.log.Warnf("ahadi: decode form data %q: %v", formID, err)
		return nil, false
	}
	return data, true
}

// Clear removes the draft saved under formID. Clearing a missing draft is
// not an error.
func (s *FormStore) Clear(formID string) error {
	if err := os.Remove(s.file(formID)); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "remove form data").With("form", formID)
	}
	return nil
}

// List returns the ids of all saved drafts, sorted.
func (s *FormStore) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "list form data")
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, FormKeyPrefix) || !strings.HasSuffix(name, ".json") {
			continue
		}
		id, err := url.PathUnescape(strings.TrimSuffix(strings.TrimPrefix(name, FormKeyPrefix), ".json"))
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}
