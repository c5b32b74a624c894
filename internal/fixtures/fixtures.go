// Package fixtures serves quarterly business-review data from static JSON files.
package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/totalcareit/partner-metrics/internal/utils"
)

// Report types published by the finance team.
const (
	TypeMRR                 = "mrr-pbr"
	TypeProfessionalService = "pro-svc-pbr"
)

// DefaultTypes are accepted when no explicit list is configured.
var DefaultTypes = []string{TypeMRR, TypeProfessionalService}

var (
	typePattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)
	filePattern = regexp.MustCompile(`^([a-z0-9]+(?:-[a-z0-9]+)*)-(q[1-4])-(\d{4})\.json$`)
)

// Ref identifies one fixture file.
type Ref struct {
	Type    string `json:"type"`
	Quarter string `json:"quarter"`
	Year    int    `json:"year"`
}

// Filename renders the on-disk name, e.g. mrr-pbr-q3-2025.json.
func (r Ref) Filename() string {
	return fmt.Sprintf("%s-%s-%d.json", r.Type, strings.ToLower(r.Quarter), r.Year)
}

// Store loads fixtures from a single directory.
type Store struct {
	dir   string
	types map[string]struct{}
}

// NewStore constructs a store rooted at dir. An empty types list selects DefaultTypes.
func NewStore(dir string, types []string) *Store {
	if len(types) == 0 {
		types = DefaultTypes
	}
	allowed := make(map[string]struct{}, len(types))
	for _, t := range types {
		allowed[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}
	return &Store{dir: dir, types: allowed}
}

// ParseRef validates caller input. Quarter is accepted as "Q3" or "q3".
func (s *Store) ParseRef(reportType, quarter, year string) (Ref, error) {
	reportType = strings.ToLower(strings.TrimSpace(reportType))
	if !typePattern.MatchString(reportType) {
		return Ref{}, utils.InvalidArgument("fixtures.ref", fmt.Sprintf("invalid report type %q", reportType))
	}
	if _, ok := s.types[reportType]; !ok {
		return Ref{}, utils.InvalidArgument("fixtures.ref", fmt.Sprintf("unknown report type %q", reportType))
	}
	q := strings.ToUpper(strings.TrimSpace(quarter))
	if len(q) != 2 || q[0] != 'Q' || q[1] < '1' || q[1] > '4' {
		return Ref{}, utils.InvalidArgument("fixtures.ref", fmt.Sprintf("invalid quarter %q", quarter))
	}
	y, err := strconv.Atoi(strings.TrimSpace(year))
	if err != nil || y < 2000 || y > 2100 {
		return Ref{}, utils.InvalidArgument("fixtures.ref", fmt.Sprintf("invalid year %q", year))
	}
	return Ref{Type: reportType, Quarter: q, Year: y}, nil
}

// Load reads and validates the fixture for ref.
func (s *Store) Load(ctx context.Context, ref Ref) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.dir == "" {
		return nil, utils.ConfigurationError("fixtures.load", "report directory not configured")
	}
	name := ref.Filename()
	if !filePattern.MatchString(name) {
		return nil, utils.InvalidArgument("fixtures.load", fmt.Sprintf("invalid fixture name %q", name))
	}

	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, utils.NewAppError(utils.KindNotFound, "fixtures.load",
				fmt.Sprintf("no %s report for %s %d", ref.Type, ref.Quarter, ref.Year), nil)
		}
		return nil, fmt.Errorf("read fixture %s: %w", name, err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, utils.NewAppError(utils.KindMalformed, "fixtures.load", name+" is not a JSON object", err)
	}
	if raw, ok := envelope["error"]; ok {
		var msg string
		if err := json.Unmarshal(raw, &msg); err != nil || msg == "" {
			msg = string(raw)
		}
		return nil, utils.NewAppError(utils.KindMalformed, "fixtures.load", msg, nil)
	}
	return json.RawMessage(data), nil
}

// List returns the fixtures present in the directory for known report types, newest first.
func (s *Store) List(ctx context.Context) ([]Ref, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.dir == "" {
		return nil, utils.ConfigurationError("fixtures.list", "report directory not configured")
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list fixtures: %w", err)
	}
	refs := make([]Ref, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := filePattern.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		if _, ok := s.types[m[1]]; !ok {
			continue
		}
		year, _ := strconv.Atoi(m[3])
		refs = append(refs, Ref{Type: m[1], Quarter: strings.ToUpper(m[2]), Year: year})
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Year != refs[j].Year {
			return refs[i].Year > refs[j].Year
		}
		if refs[i].Quarter != refs[j].Quarter {
			return refs[i].Quarter > refs[j].Quarter
		}
		return refs[i].Type < refs[j].Type
	})
	return refs, nil
}
