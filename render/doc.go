// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package render produces the HTML fragments served by the embed endpoints.

Each function renders one fragment with html/template, so every member or
form value is escaped for its context:

	html, err := render.Form(form, nil, "/forms/"+form.ID+"/submit")

Form fields are rendered by type: text-like inputs (text, email, tel, url,
number, password, date), textarea, select, radio and checkbox. Select and
radio fields list their options and mark the current value.
*/
package render
