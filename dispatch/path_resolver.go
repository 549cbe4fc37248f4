package dispatch

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// ResolvePath implements C1: split a request URL suffix into
// (directory, handler_set_name, procedure_name) and validate the resulting
// directory exists under root (spec §4.1, §3 RequestFunctionPath, I1).
func ResolvePath(root, suffix string) (RequestFunctionPath, error) {
	trimmed := strings.Trim(suffix, "/")
	trimmed = strings.TrimRight(trimmed, "./")
	if trimmed == "" {
		return RequestFunctionPath{}, dispatcherr.New(dispatcherr.KindBadPath, "missing procedure")
	}

	segments := strings.Split(trimmed, "/")
	last := segments[len(segments)-1]
	rest := segments[:len(segments)-1]

	handlerSet, procedure := splitLast(last)
	if procedure == "" {
		return RequestFunctionPath{}, dispatcherr.New(dispatcherr.KindBadPath, "missing procedure")
	}

	if handlerSet == "" {
		if len(rest) == 0 {
			return RequestFunctionPath{}, dispatcherr.New(dispatcherr.KindBadPath, "missing handler set")
		}
		handlerSet = rest[len(rest)-1]
		rest = rest[:len(rest)-1]
	}

	relDir := strings.Join(rest, "/")
	if relDir == "" {
		return RequestFunctionPath{}, dispatcherr.New(dispatcherr.KindBadPath, "missing directory")
	}

	cleanRoot, err := filepath.Abs(root)
	if err != nil {
		return RequestFunctionPath{}, dispatcherr.Wrap(dispatcherr.KindBadPath, err, "invalid root %q", root)
	}

	joined := filepath.Join(cleanRoot, filepath.FromSlash(relDir))
	if joined != cleanRoot && !strings.HasPrefix(joined, cleanRoot+string(filepath.Separator)) {
		return RequestFunctionPath{}, dispatcherr.New(dispatcherr.KindBadPath, "path escapes root: %q", relDir)
	}

	if info, err := os.Stat(joined); err != nil || !info.IsDir() {
		return RequestFunctionPath{}, dispatcherr.New(dispatcherr.KindNotFound, "directory not found: %q", relDir)
	}

	return RequestFunctionPath{Directory: joined, HandlerSet: handlerSet, Procedure: procedure}, nil
}

// splitLast splits "handlerSet.procedure" on the right-most dot. A segment
// with no dot yields an empty handlerSet and the whole segment as procedure.
func splitLast(segment string) (handlerSet, procedure string) {
	idx := strings.LastIndex(segment, ".")
	if idx < 0 {
		return "", segment
	}
	return segment[:idx], segment[idx+1:]
}
