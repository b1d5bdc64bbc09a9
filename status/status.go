// Package status describes the state of a background load job.
package status

// Status is a custom type to represent the possible status
type Status int

const (
	// Idle means the service is available to new loads
	Idle Status = 0

	// Collecting means that the source file is being downloaded
	Collecting Status = 1

	// Processing means that documents are being validated and inserted
	Processing Status = 2
)

var (
	statusText = map[Status]string{
		Idle:       "System is idle",
		Collecting: "System is collecting data",
		Processing: "System is loading documents",
	}
)

// Text returns a text for a status. It returns the empty
// string if the status is unknown.
func Text(status Status) string {
	return statusText[status]
}

func (s Status) String() string {
	return Text(s)
}
