package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/vecstore/internal/script"
)

// LoadMode controls how errors are handled during script loading.
type LoadMode int

const (
	// LoadModeFailFast stops on the first error encountered.
	LoadModeFailFast LoadMode = iota
	// LoadModeCollectAll collects all errors before returning.
	LoadModeCollectAll
)

// LoadedScript is a parsed and validated script with its source path.
type LoadedScript struct {
	Path   string
	Script *script.Script
}

// LoadError represents an error that occurred during script loading.
type LoadError struct {
	Code    string
	Message string
	Path    string // script file, if known
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeScanError    = "E002" // Directory scan error
	ErrCodeNoFiles      = "E003" // No script files found
	ErrCodeLoadFailed   = "E004" // Script read or parse failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeInvalid      = "E006" // Script failed validation
	ErrCodeJournal      = "E007" // Journal open/write error
	ErrCodeConfig       = "E008" // Config file error
	ErrCodeInvalidRunID = "E009" // Run not in journal
)

// LoadScripts loads every script named by paths. A path may be a script
// file or a directory, which is searched recursively. filter, when set, is
// a glob matched against script file names without extension.
//
// In LoadModeFailFast the first error stops loading. In LoadModeCollectAll
// every path is tried and the scripts that loaded are returned alongside
// the errors.
func LoadScripts(paths []string, filter string, mode LoadMode) ([]LoadedScript, []error) {
	files, err := FindScriptFiles(paths, filter)
	if err != nil {
		return nil, []error{err}
	}
	if len(files) == 0 {
		return nil, []error{&LoadError{Code: ErrCodeNoFiles, Message: fmt.Sprintf("no script files found in %s", strings.Join(paths, ", "))}}
	}

	var (
		loaded []LoadedScript
		errs   []error
	)
	for _, file := range files {
		s, err := script.Load(file)
		if err != nil {
			code := ErrCodeLoadFailed
			if errors.Is(err, script.ErrInvalid) {
				code = ErrCodeInvalid
			}
			errs = append(errs, &LoadError{Code: code, Message: err.Error(), Path: file})
			if mode == LoadModeFailFast {
				return loaded, errs
			}
			continue
		}
		loaded = append(loaded, LoadedScript{Path: file, Script: s})
	}
	return loaded, errs
}

// FindScriptFiles expands paths into a list of .yaml, .yml and .cue files.
// Paths keep their order; directory contents are listed in lexical order.
func FindScriptFiles(paths []string, filter string) ([]string, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, &LoadError{Code: ErrCodeGeneric, Message: fmt.Sprintf("invalid filter pattern: %v", err)}
		}
	}

	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("path not found: %s", p)}
		}
		if err != nil {
			return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing path: %v", err)}
		}

		if !info.IsDir() {
			if matchScript(p, filter) {
				files = append(files, p)
			}
			continue
		}

		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isScriptFile(path) && matchScript(path, filter) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, &LoadError{Code: ErrCodeScanError, Message: fmt.Sprintf("error scanning directory: %v", err)}
		}
	}

	return files, nil
}

func isScriptFile(path string) bool {
	switch filepath.Ext(path) {
	case ".yaml", ".yml", ".cue":
		return true
	}
	return false
}

func matchScript(path, filter string) bool {
	if filter == "" {
		return true
	}
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	matched, _ := filepath.Match(filter, name)
	return matched
}
