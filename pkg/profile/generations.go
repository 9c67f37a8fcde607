package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/nais/disquick/pkg/metrics"
)

var ErrGenerationNotFound = errors.New("no current generation in coordinator profile")

// GenerationLinkName returns the name of the link for generation n.
func GenerationLinkName(n int) string {
	return fmt.Sprintf("%s-%d-link", DefaultLink, n)
}

var generationPattern = regexp.MustCompile(`^` + DefaultLink + `-(\d+)-link$`)

// GenerationNumber parses the generation number out of a link name such as default-3-link.
func GenerationNumber(name string) (int, error) {
	base := filepath.Base(name)
	match := generationPattern.FindStringSubmatch(base)
	if match == nil {
		return 0, fmt.Errorf("'%s' is not a generation link", base)
	}
	return strconv.Atoi(match[1])
}

// CurrentGenerationLink resolves the default link in dir to the generation link it points at.
// If there is no default link, it returns ErrGenerationNotFound when mustExist is set,
// and an empty string otherwise.
func CurrentGenerationLink(dir string, mustExist bool) (string, error) {
	defaultLink := filepath.Join(dir, DefaultLink)
	destination, err := os.Readlink(defaultLink)
	if errors.Is(err, os.ErrNotExist) {
		if mustExist {
			return "", fmt.Errorf("%w: %s", ErrGenerationNotFound, defaultLink)
		}
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(destination) {
		return destination, nil
	}
	return filepath.Join(dir, destination), nil
}

// RetainedEntries returns the profile entries to keep: the default link, the current
// generation, and the keep most recent generations below it.
func RetainedEntries(entries []string, current, keep int) map[string]bool {
	retained := map[string]bool{
		DefaultLink:                 true,
		GenerationLinkName(current): true,
	}

	older := make([]int, 0, len(entries))
	for _, entry := range entries {
		n, err := GenerationNumber(entry)
		if err != nil || n >= current {
			continue
		}
		older = append(older, n)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(older)))

	for i, n := range older {
		if i >= keep {
			break
		}
		retained[GenerationLinkName(n)] = true
	}
	return retained
}

// DeleteGenerations removes every entry of the profile in dir that is not retained
// according to RetainedEntries, and returns the names removed.
func DeleteGenerations(dir string, keep int) ([]string, error) {
	if keep < 0 {
		return nil, fmt.Errorf("number of generations to keep must not be negative")
	}

	current, err := CurrentGenerationLink(dir, true)
	if err != nil {
		return nil, err
	}
	currentNumber, err := GenerationNumber(current)
	if err != nil {
		return nil, fmt.Errorf("current generation: %w", err)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	entries := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		entries = append(entries, e.Name())
	}

	retained := RetainedEntries(entries, currentNumber, keep)
	old := make([]string, 0)
	for _, entry := range entries {
		if !retained[entry] {
			old = append(old, entry)
		}
	}
	sort.Strings(old)

	if len(old) == 0 {
		log.Infof("No generations will be deleted")
		return old, nil
	}

	log.Infof("Deleting generations %s", strings.Join(old, " "))
	for _, entry := range old {
		err = os.Remove(filepath.Join(dir, entry))
		if err != nil {
			return nil, err
		}
		metrics.GenerationsDeleted.Inc()
	}
	return old, nil
}
