package model

// Student is the system-of-record entity whose attributes populate the
// generated enrollment declaration. ID is the enrollment number. Read-only
// from the pipeline's perspective.
type Student struct {
	ID     string
	Name   string
	Course string
	Email  string
	Phone  string
}
