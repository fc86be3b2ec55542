package instructor

import "testing"

func TestInstructor_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      Instructor
		wantErr error
	}{
		{"valid", Instructor{FirstName: "Sam", LastName: "Hohaia", Email: "sam@example.com"}, nil},
		{"email optional", Instructor{FirstName: "Sam"}, nil},
		{"missing name", Instructor{Email: "sam@example.com"}, ErrEmptyName},
		{"bad email", Instructor{FirstName: "Sam", Email: "sam"}, ErrInvalidEmail},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.in.Validate(); err != tc.wantErr {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestInstructor_FullName(t *testing.T) {
	i := Instructor{FirstName: "Sam", LastName: ""}
	if got := i.FullName(); got != "Sam" {
		t.Fatalf("FullName() = %q, want %q", got, "Sam")
	}
}
