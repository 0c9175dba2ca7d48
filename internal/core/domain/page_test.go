package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPageInfoHasNext(t *testing.T) {
	assert.True(t, PageInfo{CurrentPage: 0, TotalPages: 3}.HasNext())
	assert.True(t, PageInfo{CurrentPage: 1, TotalPages: 3}.HasNext())
	assert.False(t, PageInfo{CurrentPage: 2, TotalPages: 3}.HasNext())
	assert.False(t, PageInfo{CurrentPage: 0, TotalPages: 1}.HasNext())
}

func TestFormWithFields(t *testing.T) {
	form := Form{
		Name:   "frmLogin",
		Action: "login",
		Method: "post",
		Fields: map[string]string{"txtUsuario": "", "hdnAcao": "1"},
	}

	merged := form.WithFields(map[string]string{"txtUsuario": "user", "pwdSenha": "s"})

	assert.Equal(t, "user", merged.Field("txtUsuario"))
	assert.Equal(t, "1", merged.Field("hdnAcao"))
	assert.Equal(t, "s", merged.Field("pwdSenha"))

	// The original form is untouched.
	assert.Equal(t, "", form.Field("txtUsuario"))
	assert.Equal(t, "", form.Field("pwdSenha"))
}
