package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBatchReportAdd(t *testing.T) {
	var r BatchReport
	r.Add(DownloadOutcome{CaseNumber: "a", Succeeded: true})
	r.Add(DownloadOutcome{CaseNumber: "b", Reason: "timeout"})
	r.Add(DownloadOutcome{CaseNumber: "c", Succeeded: true})

	assert.Equal(t, 2, r.Succeeded)
	assert.Equal(t, 1, r.Failed)
	assert.Len(t, r.Outcomes, 3)
}

func TestCredentialsValidate(t *testing.T) {
	valid := Credentials{Login: "u", Secret: "s", OrgCode: "21"}
	assert.NoError(t, valid.Validate())

	assert.ErrorIs(t, Credentials{Login: "u", Secret: "s"}.Validate(), ErrConfiguration)
	assert.ErrorIs(t, Credentials{}.Validate(), ErrConfiguration)
}

func TestCredentialsStringRedactsSecret(t *testing.T) {
	c := Credentials{Login: "user", Secret: "hunter2", OrgCode: "21"}
	s := c.String()

	assert.NotContains(t, s, "hunter2")
	assert.Contains(t, s, "user")
	assert.Contains(t, s, "***")
}
