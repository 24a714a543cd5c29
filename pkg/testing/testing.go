package testing

import (
	"os"
	"path/filepath"
	"runtime"
)

// Importing this package for side effects moves the test process to the repo
// root, so relative paths (logs/, data/) resolve the same way in every package:
//
//	import (
//	  _ "github.com/alexsears/tentOS/pkg/testing"
//	)
func init() {
	_, filename, _, _ := runtime.Caller(0)
	root := filepath.Join(filepath.Dir(filename), "..", "..")
	if err := os.Chdir(root); err != nil {
		panic(err)
	}

	// keep test runs from writing into a developer's data dir
	if _, found := os.LookupEnv("TENTOS_LOG_DIR"); !found {
		os.Setenv("TENTOS_LOG_DIR", filepath.Join(os.TempDir(), "tentos-test-logs"))
	}
}
