package template

import (
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/go-cmp/cmp"
)

func row(kv ...string) Data {
	var d Data
	for i := 0; i+1 < len(kv); i += 2 {
		d.Set(kv[i], kv[i+1])
	}
	return d
}

func render(t *testing.T, src string, data Data) string {
	t.Helper()
	tmpl, err := Parse("test", src)
	if err != nil {
		t.Fatalf("Failed to parse template: %v", err)
	}
	out, err := tmpl.Render(data)
	if err != nil {
		t.Fatalf("Failed to render template: %v", err)
	}
	return out
}

func TestScalarSubstitution(t *testing.T) {
	got := render(t, "pub const BASE: u32 = /*% base %*/;\n", row("base", "0x4000"))
	if want := "pub const BASE: u32 = 0x4000;\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}

	got = render(t, "const N = /*% n:#06x %*/\n", row("n", "31"))
	if want := "const N = 0x001f\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestBlockRows(t *testing.T) {
	src := "enum E {\n    /*! vars --->\n    %name%,\n    !*/\n}\n"

	var data Data
	data.Rows("vars", row("name", "A"), row("name", "B"))
	if diff := cmp.Diff("enum E {\n    A,\n    B,\n}\n", render(t, src, data)); diff != "" {
		t.Errorf("block mismatch (-want +got):\n%s", diff)
	}

	var empty Data
	empty.Rows("vars")
	if diff := cmp.Diff("enum E {\n}\n", render(t, src, empty)); diff != "" {
		t.Errorf("empty block mismatch (-want +got):\n%s", diff)
	}
}

func TestNestedBlocks(t *testing.T) {
	src := "/*! groups --->\ng %name%:\n  /*! items --->\n  - %item%\n  !*/\n!*/\n"

	a := row("name", "a")
	a.Rows("items", row("item", "1"), row("item", "2"))
	b := row("name", "b")
	b.Rows("items")

	var data Data
	data.Rows("groups", a, b)
	want := "g a:\n  - 1\n  - 2\ng b:\n"
	if diff := cmp.Diff(want, render(t, src, data)); diff != "" {
		t.Errorf("nested mismatch (-want +got):\n%s", diff)
	}
}

func TestRowFieldScopes(t *testing.T) {
	data := row("prefix", "X")
	data.Rows("rows", row("name", "A"), row("name", "B", "prefix", "Y"))

	got := render(t, "/*! rows --->\n%prefix%_%name%\n!*/\n", data)
	if want := "X_A\nY_B\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRowFieldFormat(t *testing.T) {
	var data Data
	data.Rows("regs", row("name", "CTRL", "offset", "16"))

	got := render(t, "/*! regs --->\n%name:<6%= %offset:#05x%;\n!*/\n", data)
	if want := "CTRL  = 0x010;\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestMissingFieldsAreCollected(t *testing.T) {
	tmpl, err := Parse("regs.rs", "/*% a %*/ /*% b %*/\n/*! rows --->\n%c%\n!*/\n/*! other --->\nx\n!*/\n")
	if err != nil {
		t.Fatalf("Failed to parse template: %v", err)
	}

	var data Data
	data.Rows("rows", Data{})
	_, err = tmpl.Render(data)
	if !errors.Is(err, ErrFieldMissing) {
		t.Fatalf("expected ErrFieldMissing, got %v", err)
	}
	var missing *FieldMissingError
	if !errors.As(err, &missing) {
		t.Fatalf("expected *FieldMissingError, got %T", err)
	}
	want := []string{"a", "b", "block other", "rows.c"}
	if diff := cmp.Diff(want, missing.Names); diff != "" {
		t.Errorf("missing names mismatch (-want +got):\n%s", diff)
	}
	if missing.Template != "regs.rs" {
		t.Errorf("template = %q", missing.Template)
	}
}

func TestIncludes(t *testing.T) {
	set := NewSet(fstest.MapFS{
		"peripheral/mod.rs":      {Data: []byte("mod x;\n/*! regs --->\n#register.rs#\n!*/\n")},
		"peripheral/register.rs": {Data: []byte("\npub struct /*% name %*/;\n")},
	})

	var data Data
	data.Rows("regs", row("name", "A"), row("name", "B"))
	got, err := set.Render("peripheral/mod.rs", data)
	if err != nil {
		t.Fatalf("Failed to render: %v", err)
	}
	want := "mod x;\npub struct A;\n\npub struct B;\n\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("include mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingLink(t *testing.T) {
	set := NewSet(fstest.MapFS{
		"a/mod.rs": {Data: []byte("/*! regs --->\n#nope.rs#\n!*/\n")},
	})
	var data Data
	data.Rows("regs", Data{})

	_, err := set.Render("a/mod.rs", data)
	var link *LinkMissingError
	if !errors.As(err, &link) {
		t.Fatalf("expected *LinkMissingError, got %v", err)
	}
	if link.Link != "a/nope.rs" {
		t.Errorf("link = %q, want a/nope.rs", link.Link)
	}
	if !errors.Is(err, ErrLinkMissing) {
		t.Errorf("expected ErrLinkMissing")
	}

	tmpl, _ := set.Lookup("a/mod.rs")
	if _, err := tmpl.Render(data); !errors.Is(err, ErrLinkMissing) {
		t.Errorf("render without loader: got %v", err)
	}
}

func TestIncludeCycle(t *testing.T) {
	set := NewSet(fstest.MapFS{
		"loop.rs": {Data: []byte("/*! self --->\n#loop.rs#\n!*/\n")},
	})
	blocks := make(map[string][]Data)
	data := Data{Blocks: blocks}
	blocks["self"] = []Data{data}

	if _, err := set.Render("loop.rs", data); !errors.Is(err, ErrSyntax) {
		t.Errorf("expected depth error, got %v", err)
	}
}

func TestSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unclosed block", "/*! a --->\nx\n"},
		{"stray block end", "x\n!*/\n"},
		{"unterminated scalar", "/*% a \n%*/"},
		{"bad scalar name", "/*% 1a %*/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse("t", tt.src); !errors.Is(err, ErrSyntax) {
				t.Errorf("expected ErrSyntax, got %v", err)
			}
		})
	}
}

func TestPercentOutsideBlocksIsText(t *testing.T) {
	got := render(t, "// 100%done% #x#\n", Data{})
	if want := "// 100%done% #x#\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestInspection(t *testing.T) {
	tmpl, err := Parse("mod.rs", "/*% name %*/ /*% base:x %*/\n/*! regs --->\n%ident% %offset:#x%\n#register.rs#\n!*/\n/*! irqs --->\n%irq%\n!*/\n")
	if err != nil {
		t.Fatalf("Failed to parse template: %v", err)
	}
	if diff := cmp.Diff([]string{"base", "name"}, tmpl.Fields()); diff != "" {
		t.Errorf("fields (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"irqs", "regs"}, tmpl.Blocks()); diff != "" {
		t.Errorf("blocks (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"ident", "offset"}, tmpl.BlockFields("regs")); diff != "" {
		t.Errorf("block fields (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"register.rs"}, tmpl.Includes()); diff != "" {
		t.Errorf("includes (-want +got):\n%s", diff)
	}
}

func TestSetLayers(t *testing.T) {
	user := fstest.MapFS{"mod.rs": {Data: []byte("user\n")}}
	builtin := fstest.MapFS{
		"mod.rs":   {Data: []byte("builtin\n")},
		"other.rs": {Data: []byte("other\n")},
	}
	set := NewSet(user, builtin)

	got, err := set.Render("mod.rs", Data{})
	if err != nil || got != "user\n" {
		t.Errorf("Render(mod.rs) = %q, %v", got, err)
	}
	got, err = set.Render("other.rs", Data{})
	if err != nil || got != "other\n" {
		t.Errorf("Render(other.rs) = %q, %v", got, err)
	}

	if err := set.Add("extra.rs", "extra\n"); err != nil {
		t.Fatalf("Failed to add template: %v", err)
	}
	names, err := set.Names()
	if err != nil {
		t.Fatalf("Failed to list templates: %v", err)
	}
	if diff := cmp.Diff([]string{"extra.rs", "mod.rs", "other.rs"}, names); diff != "" {
		t.Errorf("names (-want +got):\n%s", diff)
	}
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value, spec, want string
	}{
		{"255", "#010x", "0x000000ff"},
		{"5", "03b", "101"},
		{"1", "03b", "001"},
		{"16", "x", "10"},
		{"16", "#X", "0X10"},
		{"0x10", "d", "16"},
		{"007", "d", "7"},
		{"7", "", "7"},
		{"7", "+d", "+7"},
		{"-7", "05d", "-0007"},
		{"12", ">4", "  12"},
		{"12", "4", "  12"},
		{"ab", "4", "ab  "},
		{"ab", "<5", "ab   "},
		{"ab", ">5", "   ab"},
		{"ab", "*^6", "**ab**"},
		{"12", "s", "12"},
		{"8", "#o", "0o10"},
	}
	for _, tt := range tests {
		got, err := FormatValue(tt.value, tt.spec)
		if err != nil {
			t.Errorf("FormatValue(%q, %q): %v", tt.value, tt.spec, err)
			continue
		}
		if got != tt.want {
			t.Errorf("FormatValue(%q, %q) = %q, want %q", tt.value, tt.spec, got, tt.want)
		}
	}

	for _, bad := range [][2]string{{"ab", "x"}, {"1", "q"}, {"ab", "+"}, {"ab", "=5"}} {
		if _, err := FormatValue(bad[0], bad[1]); !errors.Is(err, ErrFormat) {
			t.Errorf("FormatValue(%q, %q): expected ErrFormat, got %v", bad[0], bad[1], err)
		}
	}
}
