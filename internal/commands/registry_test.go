package commands

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

type stubCmd struct {
	HelpCmd
	name    string
	aliases []string
}

func (c *stubCmd) Name() string      { return c.name }
func (c *stubCmd) Aliases() []string { return c.aliases }
func (c *stubCmd) Synopsis() string  { return "stub " + c.name }

func TestRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubCmd{name: "list", aliases: []string{"ls"}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	for _, c := range []*stubCmd{
		{name: "list"},
		{name: "other", aliases: []string{"ls"}},
		{name: "ls"},
		{name: " "},
		{name: "x", aliases: []string{""}},
	} {
		if err := r.Register(c); err == nil {
			t.Errorf("expected error registering %q %v", c.name, c.aliases)
		}
	}
	if _, ok := r.Find("other"); ok {
		t.Error("a rejected command must not be partly registered")
	}
}

func TestRegistry_AllSortedOnce(t *testing.T) {
	r := NewRegistry()
	for _, c := range []*stubCmd{{name: "rm", aliases: []string{"delete"}}, {name: "add", aliases: []string{"create"}}} {
		if err := r.Register(c); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	all := r.All()
	if len(all) != 2 || all[0].Name() != "add" || all[1].Name() != "rm" {
		t.Errorf("unexpected commands %v", all)
	}
}

func TestHelp_ListsRegistry(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(&stubCmd{name: "rm", aliases: []string{"delete"}}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	var out bytes.Buffer
	(&HelpCmd{Registry: r}).Run(context.Background(), nil, nil, &out, &out)

	if !strings.HasSuffix(out.String(), "Commands:\n  rm         stub rm (alias: delete)\n") {
		t.Errorf("unexpected help output %q", out.String())
	}
}
