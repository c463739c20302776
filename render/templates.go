// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package render

const fieldTemplate = `{{define "field"}}<div class="mmp-form-group">
{{- if ne .Type "checkbox"}}
<label for="{{.Name}}">{{.Label}}{{if .Required}} <span class="required">*</span>{{end}}</label>
{{- end}}
{{- if eq .Type "textarea"}}
<textarea id="{{.Name}}" name="{{.Name}}" placeholder="{{.Placeholder}}"{{if .Required}} required{{end}}>{{.Value}}</textarea>
{{- else if eq .Type "select"}}
<select id="{{.Name}}" name="{{.Name}}"{{if .Required}} required{{end}}>
<option value="">Select an option</option>
{{- range .Options}}
<option value="{{.}}"{{if eq . $.Value}} selected{{end}}>{{.}}</option>
{{- end}}
</select>
{{- else if eq .Type "radio"}}
{{- range .Options}}
<label class="radio-option"><input type="radio" name="{{$.Name}}" value="{{.}}"{{if eq . $.Value}} checked{{end}}{{if $.Required}} required{{end}} /> {{.}}</label>
{{- end}}
{{- else if eq .Type "checkbox"}}
<label class="checkbox-option"><input type="checkbox" id="{{.Name}}" name="{{.Name}}" value="1"{{if eq .Value "1"}} checked{{end}} /> {{.Label}}</label>
{{- else}}
<input type="{{.Type}}" id="{{.Name}}" name="{{.Name}}" value="{{.Value}}" placeholder="{{.Placeholder}}"{{if .Required}} required{{end}} />
{{- end}}
</div>
{{end}}`

const formTemplate = `{{define "form"}}<form class="mmp-form mmp-form-{{.Type}}" data-form-id="{{.ID}}" method="post" action="{{.Action}}">
{{range .Fields}}{{template "field" .}}{{end}}<button type="submit" class="mmp-btn mmp-btn-primary">{{.Submit}}</button>
</form>
{{end}}`

const dashboardTemplate = `{{define "dashboard"}}<div class="mmp-dashboard">
<h2>Welcome, {{.User.DisplayName}}</h2>
<div class="mmp-member-info">
<span class="mmp-member-code">{{.Member.MemberCode}}</span>
<span class="mmp-status mmp-status-{{.Member.Status}}">{{.Member.Status}}</span>
</div>
<div class="mmp-replica-section"><div class="mmp-replica-url">{{.Member.ReplicaURL}}</div></div>
<div class="mmp-stats">
<div class="mmp-stat" data-stat="referrals">{{.Member.TotalReferrals}}</div>
<div class="mmp-stat" data-stat="visits">{{.Statistics.TotalVisits}}</div>
<div class="mmp-stat" data-stat="conversions">{{.Statistics.TotalConversions}}</div>
<div class="mmp-stat" data-stat="conversion_rate">{{printf "%.2f" .Statistics.ConversionRate}}%</div>
</div>
{{- if .Unread}}
<div class="mmp-notifications-badge">{{.Unread}}</div>
{{- end}}
</div>
{{end}}`

const profileTemplate = `{{define "profile"}}<div class="mmp-profile">
<div class="mmp-replica-link-container"><input type="text" value="{{.ReplicaURL}}" disabled class="mmp-readonly" /></div>
{{template "form" .Form}}</div>
{{end}}`

const membersTemplate = `{{define "members"}}<div class="mmp-members">
{{- if .}}
<table class="mmp-table">
<thead><tr><th>Member</th><th>Code</th><th>Status</th><th>Referrals</th><th>Joined</th></tr></thead>
<tbody>
{{- range .}}
<tr><td>{{.DisplayName}}</td><td>{{.MemberCode}}</td><td>{{.Status}}</td><td>{{.TotalReferrals}}</td><td>{{.Registered.Format "2006-01-02"}}</td></tr>
{{- end}}
</tbody>
</table>
{{- else}}
<p>No referrals yet. Start sharing your replica link to grow your network!</p>
{{- end}}
</div>
{{end}}`

const networkTemplate = `{{define "network"}}<div class="mmp-network">
{{- range $i, $level := .}}
<div class="mmp-network-level" data-level="{{inc $i}}">
<h3>Level {{inc $i}} ({{len $level}})</h3>
<ul>
{{- range $level}}
<li data-member="{{.MemberID}}" data-sponsor="{{.SponsorID}}">{{.DisplayName}} <span class="mmp-member-code">{{.MemberCode}}</span> <span class="mmp-status mmp-status-{{.Status}}">{{.Status}}</span></li>
{{- end}}
</ul>
</div>
{{- else}}
<p>Your network is empty.</p>
{{- end}}
</div>
{{end}}`

const downloadsTemplate = `{{define "downloads"}}<div class="mmp-downloads">
{{- range .}}
<div class="mmp-download">
<a href="/downloads/{{.ID}}">{{.Title}}</a>
{{- if .Description}}<p>{{.Description}}</p>{{end}}
<span class="mmp-file-type">{{.FileType}}</span>
</div>
{{- else}}
<p>No downloads available.</p>
{{- end}}
</div>
{{end}}`

const statisticsTemplate = `{{define "statistics"}}<div class="mmp-statistics">
<ul class="mmp-totals">
<li>Visits: {{.TotalVisits}}</li>
<li>Clicks: {{.TotalClicks}}</li>
<li>Conversions: {{.TotalConversions}}</li>
<li>Conversion rate: {{printf "%.2f" .ConversionRate}}%</li>
</ul>
<table class="mmp-daily-visits">
<thead><tr><th>Date</th><th>Visits</th></tr></thead>
<tbody>
{{- range .DailyVisits}}
<tr><td>{{.Date}}</td><td>{{.Value}}</td></tr>
{{- end}}
</tbody>
</table>
</div>
{{end}}`

const loginTemplate = `{{define "login"}}<form class="mmp-login" method="post" action="{{.}}">
<div class="mmp-form-group"><label for="email">Email Address</label><input type="email" id="email" name="email" required /></div>
<div class="mmp-form-group"><label for="password">Password</label><input type="password" id="password" name="password" required /></div>
<button type="submit" class="mmp-btn mmp-btn-primary">Login</button>
</form>
{{end}}`

const logoutTemplate = `{{define "logout"}}<form class="mmp-logout" method="post" action="{{.}}"><button type="submit" class="mmp-btn mmp-btn-secondary">Logout</button></form>
{{end}}`

const loginRequiredTemplate = `{{define "login_required"}}<div class="mmp-login-required">
<h2>Member Area Access Required</h2>
<p>Please log in to access your member dashboard.</p>
<a href="{{.}}" class="mmp-btn mmp-btn-primary">Login</a>
</div>
{{end}}`
