package render

import (
	"html/template"
	"strings"
	"testing"
)

func TestHumanize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"company_email", "Company email"},
		{"yearsOfExperience", "Years of experience"},
		{"firstName", "First name"},
		{"phone", "Phone"},
		{"job-title", "Job title"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Humanize(tt.in); got != tt.want {
			t.Errorf("Humanize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFuncMapInTemplate(t *testing.T) {
	tmpl := template.Must(template.New("t").Funcs(FuncMap()).Parse(
		`{{default "n/a" .Empty}}|{{humanize .Key}}|{{nl2br .Body}}`))

	var b strings.Builder
	err := tmpl.Execute(&b, map[string]string{"Empty": " ", "Key": "work_email", "Body": "a\n<b>"})
	if err != nil {
		t.Fatal(err)
	}

	want := "n/a|Work email|a<br>&lt;b&gt;"
	if b.String() != want {
		t.Errorf("got %q, want %q", b.String(), want)
	}
}
