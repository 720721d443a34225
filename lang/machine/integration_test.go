package machine_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/ely/internal/diag"
	"github.com/mna/ely/internal/filetest"
	"github.com/mna/ely/lang/compiler"
	"github.com/mna/ely/lang/machine"
	"github.com/mna/ely/lang/natives"
)

var update = flag.Bool("test.update-machine-tests", false, "update golden files in testdata")

// TestPrograms compiles and runs every .ely file under testdata, diffing
// its captured stdout against the matching .want golden file, grounded on
// the worked scenarios of spec.md §8 and exercised via the teacher's
// golden-file harness (internal/filetest).
func TestPrograms(t *testing.T) {
	for _, fi := range filetest.SourceFiles(t, "testdata", ".ely") {
		fi := fi
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join("testdata", fi.Name()))
			if err != nil {
				t.Fatal(err)
			}

			var diagBuf bytes.Buffer
			prog, err := compiler.Compile(string(src), diag.WriterSink{W: &diagBuf})
			if err != nil {
				t.Fatalf("compile: %v\n%s", err, diagBuf.String())
			}

			var out bytes.Buffer
			th := machine.NewThread()
			th.Stdout = &out
			natives.Register(th)
			if _, err := th.Run(prog); err != nil {
				t.Fatalf("run: %v", err)
			}

			filetest.DiffOutput(t, fi, out.String(), "testdata", update)
		})
	}
}
