package substitute

import (
	"context"
	"fmt"

	"github.com/vk/evalflow/internal/ctxlog"
	"github.com/vk/evalflow/internal/document"
	"github.com/vk/evalflow/internal/fsutil"
)

// UniquePath returns path if it is unused, otherwise the first of path_1,
// path_2, ... for which exists reports false.
func UniquePath(path string, exists func(string) bool) string {
	if !exists(path) {
		return path
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d", path, i)
		if !exists(candidate) {
			return candidate
		}
	}
}

// UniqueLogDir rewrites log_dir to an unused path when the job asks for
// log_dir_create_unique. Relative log dirs are checked the way fsutil
// resolves them but kept relative in the document. exists may be nil to
// check the real file system.
func UniqueLogDir(ctx context.Context, doc document.Document, exists func(string) bool) (document.Document, error) {
	unique, _ := doc["log_dir_create_unique"].(bool)
	logDir, ok := doc["log_dir"].(string)
	if !unique || !ok || logDir == "" {
		return doc, nil
	}
	if exists == nil {
		exists = fsutil.Exists
	}

	taken := func(p string) bool {
		abs, err := fsutil.ResolvePath(p, "")
		if err != nil {
			return exists(p)
		}
		return exists(abs)
	}

	out := document.CloneDoc(doc)
	out["log_dir"] = UniquePath(logDir, taken)
	if out["log_dir"] != logDir {
		ctxlog.FromContext(ctx).Info("Log directory exists, using a fresh one.", "requested", logDir, "log_dir", out["log_dir"])
	}
	return out, nil
}
