package manifest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/nais/disquick/pkg/metrics"
	"github.com/nais/disquick/pkg/stage"
	"github.com/nais/disquick/pkg/store"
)

const artifactName = "manifest.xml"

// Retarget makes the manifest recorded by the generation link describe target.
//
// If the recorded manifest already distributes to target, nothing is changed and the
// original artifact is returned. Otherwise a rewritten copy is built into the store
// and link is moved to it. The returned bool reports whether the link was moved.
func Retarget(ctx context.Context, s *store.Store, target, link string) (string, bool, error) {
	original, err := resolveLink(link)
	if err != nil {
		return "", false, err
	}

	doc, err := ReadDocument(original)
	if err != nil {
		return "", false, err
	}

	current := doc.CurrentTarget()
	if current == target || len(current) == 0 {
		return original, false, nil
	}

	var artifact string
	err = stage.Run(ctx, stage.Retarget, fmt.Sprintf("Retargeting %s from '%s' to '%s'", filepath.Base(link), current, target), func(ctx context.Context) error {
		retargeted, rewrites := doc.Retarget(target)
		log.Debugf("Rewrote %d target references", rewrites)

		content, err := retargeted.Bytes()
		if err != nil {
			return fmt.Errorf("encode retargeted manifest: %w", err)
		}

		artifact, err = s.BuildFile(ctx, artifactName, content)
		if err != nil {
			return err
		}

		return s.AddRoot(ctx, link, artifact)
	})
	if err != nil {
		return "", false, err
	}

	metrics.ManifestRetargeted.Inc()
	return artifact, true, nil
}

func resolveLink(link string) (string, error) {
	destination, err := os.Readlink(link)
	if err != nil {
		return "", err
	}
	if !filepath.IsAbs(destination) {
		destination = filepath.Join(filepath.Dir(link), destination)
	}
	return destination, nil
}
