package authapi

import (
	"bytes"
	"html/template"
	"net/http"
)

var pages = template.Must(template.New("layout").Parse(`
{{- define "head" -}}
<!DOCTYPE html>
<html lang="en">
<head>
    <meta http-equiv="content-type" content="text/html; charset=utf-8">
    <title>{{.Title}}</title>
</head>
<body>
{{- with .Flash}}
    <p><i>{{.}}</i></p>
{{- end}}
{{- end -}}

{{- define "foot" -}}
</body>
</html>
{{- end -}}

{{- define "login" -}}
{{template "head" .}}
    <form action="/login" method="post">
        <label>Username
            <input type="text" placeholder="Enter Username" name="username">
        </label>
        <label>Password
            <input type="password" placeholder="Enter Password" name="password">
        </label>
        <button type="submit">Login</button>
    </form>
{{template "foot" .}}
{{- end -}}

{{- define "dashboard" -}}
{{template "head" .}}
    <p>Welcome {{.Username}}!</p>
    <p>Available actions:</p>
    <ol>
        <li><a href="/admin/password">Change password</a></li>
        <li>
            <form name="logoutForm" action="/admin/logout" method="post">
                <input type="submit" value="Logout">
            </form>
        </li>
    </ol>
{{template "foot" .}}
{{- end -}}

{{- define "password" -}}
{{template "head" .}}
    <form action="/admin/password" method="post">
        <label>Current password
            <input type="password" placeholder="Enter current password" name="current_password">
        </label>
        <br>
        <label>New password
            <input type="password" placeholder="Enter new password" name="new_password">
        </label>
        <br>
        <label>Confirm new password
            <input type="password" placeholder="Type the new password again" name="new_password_check">
        </label>
        <br>
        <button type="submit">Change password</button>
    </form>
    <p><a href="/admin/dashboard">&lt;- Back</a></p>
{{template "foot" .}}
{{- end -}}
`))

type pageData struct {
	Title    string
	Flash    string
	Username string
}

// renderPage executes into a buffer first so a template failure never
// produces a half-written 200.
func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, name string, data pageData) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		h.log.ErrorContext(r.Context(), "http.render.fail", "err", err, "page", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
