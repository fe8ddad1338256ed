package transpiler

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/kbukum/flowtorch/storage"
)

// ArtifactExt is the file extension of exported artifacts.
const ArtifactExt = ".py"

var keyReplacer = strings.NewReplacer("/", "_", "\\", "_", "..", "_")

// ArtifactKey returns the storage key of the artifact of terminal.
func ArtifactKey(prefix, terminal string) string {
	return path.Join(prefix, keyReplacer.Replace(terminal)+ArtifactExt)
}

// ExportArtifacts writes every artifact of res to store under prefix, in
// terminal order, and returns the written keys.
func ExportArtifacts(ctx context.Context, store storage.Storage, prefix string, res *Result) ([]string, error) {
	var keys []string
	for _, term := range res.Terminals {
		art, ok := res.Artifacts[term]
		if !ok {
			continue
		}
		key := ArtifactKey(prefix, term)
		if err := storage.WriteBytes(ctx, store, key, []byte(art.Code)); err != nil {
			return keys, fmt.Errorf("transpiler: exporting %s: %w", term, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}
