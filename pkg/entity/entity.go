package entity

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// EnvironmentID identifies one deployed environment as projectId:environmentId.
type EnvironmentID string

var environmentPartPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

func NewEnvironmentID(projectID, environmentID string) EnvironmentID {
	return EnvironmentID(fmt.Sprintf("%s:%s", projectID, environmentID))
}

func ParseEnvironmentID(s string) (EnvironmentID, error) {
	project, env, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || !environmentPartPattern.MatchString(project) || !environmentPartPattern.MatchString(env) {
		return "", fmt.Errorf("invalid environment id %q, expected projectId:environmentId", s)
	}
	return NewEnvironmentID(project, env), nil
}

func (e EnvironmentID) Project() string {
	project, _, _ := strings.Cut(string(e), ":")
	return project
}

func (e EnvironmentID) Environment() string {
	_, env, _ := strings.Cut(string(e), ":")
	return env
}

func (e EnvironmentID) String() string {
	return string(e)
}

// Environment Status
const (
	Active   = "active"
	Inactive = "inactive"
	Unknown  = "unknown"
)

type Environment struct {
	ProjectID     string    `json:"projectId"`
	EnvironmentID string    `json:"environmentId"`
	Status        string    `json:"status"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (e Environment) ID() EnvironmentID {
	return NewEnvironmentID(e.ProjectID, e.EnvironmentID)
}

// HostSignature is the proxy used for "runs on the same host": two
// environments reporting the same boot time, cpu count and ip are cotenants.
type HostSignature struct {
	BootTime time.Time `json:"bootTime"`
	CPUs     int       `json:"cpus"`
	IP       string    `json:"ip"`
}

func (h HostSignature) Key() string {
	return strings.Join([]string{strconv.FormatInt(h.BootTime.Unix(), 10), strconv.Itoa(h.CPUs), h.IP}, "/")
}

func (h HostSignature) IsZero() bool {
	return h.BootTime.IsZero() && h.CPUs == 0 && h.IP == ""
}

type Observation struct {
	CheckID       string        `json:"checkId"`
	EnvironmentID EnvironmentID `json:"environmentId"`
	Signature     HostSignature `json:"signature"`
	CheckedAt     time.Time     `json:"checkedAt"`
}

type HostAssignment struct {
	EnvironmentID EnvironmentID `json:"environmentId"`
	HostID        int           `json:"hostId"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}
