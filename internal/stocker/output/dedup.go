package output

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/RobinCoderZhao/stocker/internal/stocker/webparser"
)

// DedupFile is the JSON file mapping an uppercase ticker to the URLs already
// processed for it.
type DedupFile struct {
	path string
	mu   sync.Mutex
}

// NewDedupFile returns a handle for path. The file need not exist.
func NewDedupFile(path string) *DedupFile {
	return &DedupFile{path: path}
}

// Path returns the file path.
func (d *DedupFile) Path() string { return d.path }

// Load reads the whole file. A missing or empty file is an empty map.
func (d *DedupFile) Load() (map[string][]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load()
}

func (d *DedupFile) load() (map[string][]string, error) {
	data, err := os.ReadFile(d.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string][]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", d.path, err)
	}
	out := map[string][]string{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", d.path, err)
	}
	return out, nil
}

// Seen returns the recorded URLs of ticker as a set.
func (d *DedupFile) Seen(ticker string) (map[string]bool, error) {
	all, err := d.Load()
	if err != nil {
		return nil, err
	}
	urls := all[strings.ToUpper(ticker)]
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		seen[u] = true
	}
	return seen, nil
}

// Merge appends urls to ticker's array and rewrites the file. Only http(s)
// article URLs are recorded, each at most once. Other tickers are left as
// they were. It returns how many URLs were added.
func (d *DedupFile) Merge(ticker string, urls []string) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	all, err := d.load()
	if err != nil {
		return 0, err
	}
	key := strings.ToUpper(ticker)
	existing := all[key]
	have := make(map[string]bool, len(existing)+len(urls))
	for _, u := range existing {
		have[u] = true
	}

	added := 0
	for _, u := range urls {
		if !strings.HasPrefix(u, "http") || webparser.IsHomepage(u) || have[u] {
			continue
		}
		have[u] = true
		existing = append(existing, u)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	all[key] = existing
	return added, d.write(all)
}

// write replaces the file through a temp file in the same directory.
func (d *DedupFile) write(all map[string][]string) error {
	data, err := json.MarshalIndent(all, "", "    ")
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	dir := filepath.Dir(d.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".dedup-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		return fmt.Errorf("replace %s: %w", d.path, err)
	}
	return nil
}
