package preflight

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// Checks describes what a scan needs from the environment.
type Checks struct {
	// Root is the directory to be scanned.
	Root string
	// CacheDir is checked for write access when non-empty.
	CacheDir string
}

// Run executes all applicable checks. A missing scan root passes: the
// scanner treats it as "nothing to scan" rather than an error.
func Run(c Checks) []Result {
	var results []Result

	if info, err := os.Stat(c.Root); err == nil && info.IsDir() {
		results = append(results, checkAccess("Scan root", c.Root, unix.R_OK|unix.X_OK))
	} else {
		results = append(results, Result{
			Name:   "Scan root",
			Passed: true,
			Detail: fmt.Sprintf("%s (not a directory; scan will be empty)", c.Root),
		})
	}

	if c.CacheDir != "" {
		results = append(results, checkCacheDir(c.CacheDir))
	}
	return results
}

// Failed filters results down to the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

func checkAccess(name, path string, mode uint32) Result {
	if err := unix.Access(path, mode); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (access ok)", path)}
}

// checkCacheDir verifies the cache directory exists (creating it when
// absent) and is writable.
func checkCacheDir(dir string) Result {
	const name = "Cache directory"
	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", dir)}
	case err == nil:
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: create: %v)", dir, mkErr)}
		}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", dir, err)}
	}
	return checkAccess(name, dir, unix.R_OK|unix.W_OK|unix.X_OK)
}
