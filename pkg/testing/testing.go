package testing

import (
	"os"
	"path"
	"runtime"
)

// importing this package for side effects moves the test process to the project root, so
// relative paths (logs/, seed.yaml, farm.db) resolve the same way as for cmd/server:
//
//	import (
//	  _ "liyu1981.xyz/smart-farm-service/pkg/testing"
//	)
func init() {
	if err := os.Chdir(ProjectRoot()); err != nil {
		panic(err)
	}
}

// ProjectRoot is two levels above this file.
func ProjectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	return path.Join(path.Dir(filename), "..", "..")
}
