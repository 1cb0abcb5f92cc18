package domain

import "testing"

func TestParseFileRole(t *testing.T) {
	tests := []struct {
		in   string
		want FileRole
	}{
		{"to_modify", RoleToModify},
		{"reference", RoleReference},
		{"create", RoleCreate},
		{"dependency", RoleDependency},
		{"other", RoleOther},
		{"something-unknown", RoleOther},
		{"", RoleOther},
	}

	for _, tt := range tests {
		if got := ParseFileRole(tt.in); got != tt.want {
			t.Errorf("ParseFileRole(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRelatedFile_Validate(t *testing.T) {
	tests := []struct {
		name    string
		file    RelatedFile
		wantErr bool
	}{
		{"valid without range", RelatedFile{Path: "a.go", Role: RoleToModify}, false},
		{"valid with range", RelatedFile{Path: "a.go", Role: RoleReference, LineStart: 1, LineEnd: 10}, false},
		{"single line range", RelatedFile{Path: "a.go", Role: RoleReference, LineStart: 5, LineEnd: 5}, false},
		{"missing path", RelatedFile{Role: RoleToModify}, true},
		{"unknown role", RelatedFile{Path: "a.go", Role: "bogus"}, true},
		{"inverted range", RelatedFile{Path: "a.go", Role: RoleToModify, LineStart: 10, LineEnd: 2}, true},
		{"zero start with end", RelatedFile{Path: "a.go", Role: RoleToModify, LineStart: 0, LineEnd: 4}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.file.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
