package adapter

import (
	"errors"
	"path/filepath"
	"testing"

	m "evogen.dev/pkg/evogen/internal/model"
)

func TestLocalTargetAdapter_FindTargets(t *testing.T) {
	targets := NewLocalTargetAdapter(NewLocalSourceFSAdapter())

	paths, err := targets.FindTargets(m.Path(filepath.Join("..", "..", "examples")), true)
	if err != nil {
		t.Fatalf("FindTargets() error = %v", err)
	}

	for _, name := range []string{"triangle", "calculator", "flags", "invalid"} {
		want := m.Path(filepath.Join("..", "..", "examples", name, name+".yaml"))

		found := false

		for _, p := range paths {
			if p == want {
				found = true
			}
		}

		if !found {
			t.Fatalf("FindTargets() = %v, missing %s", paths, want)
		}
	}
}

func TestLocalTargetAdapter_LoadTarget(t *testing.T) {
	target := loadExample(t, "triangle")

	if target.Class != "Triangle" || len(target.Methods) != 2 {
		t.Fatalf("LoadTarget() = %+v", target)
	}

	classify, ok := target.Method("classify")
	if !ok || len(classify.Predicates) != 4 || len(classify.Returns) != 4 {
		t.Fatalf("classify = %+v", classify)
	}

	if p := classify.Predicates[1]; p.Parent != 1 || p.Branch || p.Op != "==" {
		t.Fatalf("predicate 2 = %+v", p)
	}
}

func TestLocalTargetAdapter_Invalid(t *testing.T) {
	targets := NewLocalTargetAdapter(NewLocalSourceFSAdapter())

	_, err := targets.LoadTarget(m.Path(filepath.Join("..", "..", "examples", "invalid", "invalid.yaml")))
	if !errors.Is(err, ErrInvalidTarget) {
		t.Fatalf("LoadTarget() error = %v, want ErrInvalidTarget", err)
	}

	cases := map[string]string{
		"unknown field":     "class: A\nmethods: []\ncolour: red\n",
		"not yaml":          "class: [\n",
		"missing class":     "methods: []\n",
		"unknown operand":   "class: A\nmethods:\n  - name: f\n    default: \"y\"\n",
		"orphan return":     "class: A\nmethods:\n  - name: f\n    returns: [{predicate: 9, branch: true, expr: \"1\"}]\n    default: \"0\"\n",
		"bad operator":      "class: A\nmethods:\n  - name: f\n    params: [{name: a, type: int}]\n    predicates: [{id: 1, left: a, op: \"=<\", right: \"1\"}]\n    default: \"a\"\n",
		"late parent":       "class: A\nmethods:\n  - name: f\n    params: [{name: a, type: int}]\n    predicates: [{id: 1, parent: 2, left: a, op: \"<\", right: \"1\"}, {id: 2, left: a, op: \"<\", right: \"1\"}]\n    default: \"a\"\n",
		"duplicate methods": "class: A\nmethods:\n  - {name: f, default: \"0\"}\n  - {name: f, default: \"1\"}\n",
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseTarget([]byte(doc)); !errors.Is(err, ErrInvalidTarget) {
				t.Fatalf("ParseTarget() error = %v, want ErrInvalidTarget", err)
			}
		})
	}
}

func TestLocalTargetAdapter_SaveAndFingerprint(t *testing.T) {
	fs := NewLocalSourceFSAdapter()
	targets := NewLocalTargetAdapter(fs)
	original := loadExample(t, "calculator")

	path := m.Path(filepath.Join(t.TempDir(), "copy", "calculator.yaml"))
	if err := targets.SaveTarget(path, original); err != nil {
		t.Fatalf("SaveTarget() error = %v", err)
	}

	loaded, err := targets.LoadTarget(path)
	if err != nil {
		t.Fatalf("LoadTarget() error = %v", err)
	}

	scale, ok := loaded.Method("scale")
	if !ok || !scale.Private || scale.Returns[0].Expr != "x * -2" {
		t.Fatalf("round trip lost scale: %+v", scale)
	}

	first, err := targets.Fingerprint(path)
	if err != nil {
		t.Fatalf("Fingerprint() error = %v", err)
	}

	expected, err := fs.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile() error = %v", err)
	}

	if first != expected || len(first) != 64 {
		t.Fatalf("Fingerprint() = %s, want %s", first, expected)
	}
}
