// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package render

import (
	"bytes"
	"html/template"

	"github.com/danielhkuo/mlm-members/models"
)

var templates = template.Must(template.New("render").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(fieldTemplate + formTemplate + dashboardTemplate + profileTemplate + membersTemplate +
	networkTemplate + downloadsTemplate + statisticsTemplate + loginTemplate + logoutTemplate + loginRequiredTemplate))

type fieldView struct {
	models.FormField
	Value string
}

type formView struct {
	ID     string
	Type   string
	Action string
	Submit string
	Fields []fieldView
}

func newFormView(form models.Form, values map[string]string, action string) formView {
	v := formView{
		ID:     form.ID,
		Type:   form.Type,
		Action: action,
		Submit: "Submit",
		Fields: make([]fieldView, 0, len(form.Fields)),
	}
	switch form.Type {
	case models.FormRegistration:
		v.Submit = "Register"
	case models.FormProfile:
		v.Submit = "Update Profile"
	}

	for _, f := range form.Fields {
		if f.Label == "" {
			f.Label = f.Name
		}
		value := values[f.Name]
		if f.Type == "password" {
			value = ""
		}
		v.Fields = append(v.Fields, fieldView{FormField: f, Value: value})
	}
	return v
}

func execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Form renders a form definition. values pre-fill inputs; password inputs
// are always left empty.
func Form(form models.Form, values map[string]string, action string) (string, error) {
	return execute("form", newFormView(form, values, action))
}

// Profile renders the profile form pre-filled from the user and member
func Profile(form models.Form, user models.User, member models.Member, action string) (string, error) {
	values := map[string]string{}
	for k, v := range member.CustomFields {
		values[k] = v
	}
	values["first_name"] = user.FirstName
	values["last_name"] = user.LastName
	values["email"] = user.Email
	values["display_name"] = user.DisplayName
	if user.Phone != "" {
		values["phone"] = user.Phone
	}

	return execute("profile", struct {
		ReplicaURL string
		Form       formView
	}{member.ReplicaURL, newFormView(form, values, action)})
}

func Dashboard(d models.MemberDashboardResponse) (string, error) {
	return execute("dashboard", d)
}

// Members renders a member's direct referrals
func Members(referrals []models.NetworkNode) (string, error) {
	return execute("members", referrals)
}

func Network(levels [][]models.NetworkNode) (string, error) {
	return execute("network", levels)
}

func Downloads(downloads []models.Download) (string, error) {
	return execute("downloads", downloads)
}

func Statistics(stats models.MemberStatistics) (string, error) {
	return execute("statistics", stats)
}

// Login renders a login form posting to action
func Login(action string) (string, error) {
	return execute("login", action)
}

func Logout(action string) (string, error) {
	return execute("logout", action)
}

// LoginRequired is shown by member render points to anonymous visitors
func LoginRequired(loginURL string) (string, error) {
	return execute("login_required", loginURL)
}
