package extract

import (
	"testing"

	"github.com/ppiankov/wikipub/internal/model"
)

func TestFindTemplate_NamedParams(t *testing.T) {
	text := `intro
{{NavigacePaP
 | TITUL = Lumír
 | PŘEDCHOZÍ = [[../Článek 1|Článek 1]]
 | DALŠÍ = Článek 3
}}
body`

	tpl, ok := FindTemplate(text, "NavigacePaP")
	if !ok {
		t.Fatal("Expected template to be found")
	}
	if got, _ := tpl.Param("TITUL"); got != "Lumír" {
		t.Errorf("Expected TITUL 'Lumír', got %q", got)
	}
	if got, _ := tpl.Param("předchozí"); got != "[[../Článek 1|Článek 1]]" {
		t.Errorf("Expected raw link value, got %q", got)
	}
}

func TestFindTemplate_NameVariants(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{"exact", "{{NavigacePaP|TITUL=X}}", true},
		{"underscores", "{{Navigace_PaP|TITUL=X}}", false},
		{"case", "{{navigacepap|TITUL=X}}", true},
		{"namespace", "{{Šablona:NavigacePaP|TITUL=X}}", true},
		{"other template", "{{Other|TITUL=X}}", false},
		{"commented out", "<!-- {{NavigacePaP|TITUL=X}} -->", false},
		{"unterminated", "{{NavigacePaP|TITUL=X", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := FindTemplate(tt.text, "NavigacePaP")
			if ok != tt.want {
				t.Errorf("FindTemplate(%q) found=%v, want %v", tt.text, ok, tt.want)
			}
		})
	}
}

func TestFindTemplate_NestedValues(t *testing.T) {
	text := "{{NavigacePaP|TITUL={{Upper|lumír}}|DALŠÍ=[[A|B]]|pos}}"

	tpl, ok := FindTemplate(text, "NavigacePaP")
	if !ok {
		t.Fatal("Expected template to be found")
	}
	if got := tpl.Params["TITUL"]; got != "{{Upper|lumír}}" {
		t.Errorf("Expected nested template kept intact, got %q", got)
	}
	if got := tpl.Params["DALŠÍ"]; got != "[[A|B]]" {
		t.Errorf("Expected link kept intact, got %q", got)
	}
	if len(tpl.Positional) != 1 || tpl.Positional[0] != "pos" {
		t.Errorf("Expected one positional param, got %v", tpl.Positional)
	}
}

func TestFindTemplate_InsideOtherTemplate(t *testing.T) {
	text := "{{Box|content={{NavigacePaP|TITUL=Inner}}}}"

	tpl, ok := FindTemplate(text, "NavigacePaP")
	if !ok {
		t.Fatal("Expected nested template to be found")
	}
	if got, _ := tpl.Param("TITUL"); got != "Inner" {
		t.Errorf("Expected 'Inner', got %q", got)
	}
}

func TestFindTemplate_FirstOccurrenceWins(t *testing.T) {
	text := "{{NavigacePaP|TITUL=First}}\n{{NavigacePaP|TITUL=Second}}"

	tpl, _ := FindTemplate(text, "NavigacePaP")
	if got, _ := tpl.Param("TITUL"); got != "First" {
		t.Errorf("Expected first occurrence, got %q", got)
	}
}

func TestFindTemplate_AfterUnclosedBraces(t *testing.T) {
	text := "Úvod {{Pozn\n\n{{NavigacePaP|TITUL=Lumír|PŘEDCHOZÍ=Page6|DALŠÍ=Page8}}\ntext"

	tpl, ok := FindTemplate(text, "NavigacePaP")
	if !ok {
		t.Fatal("Expected template after an unclosed {{ to be found")
	}
	if got, _ := tpl.Param("TITUL"); got != "Lumír" {
		t.Errorf("Expected TITUL 'Lumír', got %q", got)
	}
	if got, _ := tpl.Param("DALŠÍ"); got != "Page8" {
		t.Errorf("Expected DALŠÍ 'Page8', got %q", got)
	}

	if _, ok := FindTemplate("{{NavigacePaP|TITUL=Lumír", "NavigacePaP"); ok {
		t.Error("Expected an unclosed template not to be found")
	}
}

func TestTemplate_EmptyParamIsMissing(t *testing.T) {
	tpl, _ := FindTemplate("{{NavigacePaP|TITUL= |DALŠÍ=X}}", "NavigacePaP")
	if _, ok := tpl.Param("TITUL"); ok {
		t.Error("Expected empty value to count as missing")
	}
}

func TestNavigationExtractor_Extract(t *testing.T) {
	ex := NewNavigationExtractor(model.DefaultConfig().Template)

	nav := ex.Extract(`{{NavigacePaP|TITUL=Lumír&nbsp;1925|PŘEDCHOZÍ=[[../Článek_1|první]]|DALŠÍ=Článek 3}}`)
	if !nav.Present {
		t.Fatal("Expected template to be present")
	}
	if !nav.HasTitle() {
		t.Fatal("Expected title to be declared")
	}
	if nav.Title != "Lumír 1925" {
		t.Errorf("Expected decoded title, got %q", nav.Title)
	}
	if nav.Previous != "Článek 1" {
		t.Errorf("Expected cleaned previous, got %q", nav.Previous)
	}
	if nav.Next != "Článek 3" {
		t.Errorf("Expected next 'Článek 3', got %q", nav.Next)
	}
	if nav.Err() != nil {
		t.Errorf("Expected no error, got %v", nav.Err())
	}
}

func TestNavigationExtractor_MissingTitle(t *testing.T) {
	ex := NewNavigationExtractor(model.DefaultConfig().Template)

	nav := ex.Extract("{{NavigacePaP|DALŠÍ=X}}")
	if nav.HasTitle() {
		t.Error("Expected no title")
	}
	if nav.Err() != model.ErrParamMissing {
		t.Errorf("Expected ErrParamMissing, got %v", nav.Err())
	}

	none := ex.Extract("plain text")
	if none.Present || none.Err() != nil {
		t.Errorf("Expected absent template without error, got %+v", none)
	}
}

func TestCleanTitle(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"  Lumír  ", "Lumír"},
		{"[[Lumír (časopis)|Lumír]]", "Lumír (časopis)"},
		{"../../Článek", "Článek"},
		{"<span>Moderní_revue</span>", "Moderní revue"},
		{"Tom &amp; Jerry", "Tom & Jerry"},
	}

	for _, tt := range tests {
		if got := CleanTitle(tt.raw); got != tt.want {
			t.Errorf("CleanTitle(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
