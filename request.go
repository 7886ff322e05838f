package mandrill

// MergeLanguage is the merge syntax requested for every render.
const MergeLanguage = "handlebars"

// InfoRequest for POST /templates/info.json
type InfoRequest struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// TemplateContent is an editable region override. Renders never send any,
// but the field is required by the API.
type TemplateContent struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// RenderRequest for POST /templates/render.json
type RenderRequest struct {
	Key             string                `json:"key"`
	TemplateName    string                `json:"template_name"`
	MergeLanguage   string                `json:"merge_language"`
	MergeVars       []VariableReplacement `json:"merge_vars,omitempty"`
	TemplateContent []TemplateContent     `json:"template_content"`
}

// UpdateRequest for POST /templates/update.json
type UpdateRequest struct {
	Key     string  `json:"key"`
	Name    string  `json:"name"`
	Code    string  `json:"code"`
	Text    *string `json:"text,omitempty"`
	Publish bool    `json:"publish"`
}

// BuildInfoRequest builds the payload that fetches a template.
func BuildInfoRequest(cmd Command) InfoRequest {
	return InfoRequest{Key: cmd.APIKey, Name: cmd.Target}
}

// BuildRenderRequest builds the payload that renders a template with the
// command's variables. MergeVars is left nil when the command has none.
func BuildRenderRequest(cmd Command) RenderRequest {
	var vars []VariableReplacement
	if len(cmd.Vars) > 0 {
		vars = make([]VariableReplacement, len(cmd.Vars))
		copy(vars, cmd.Vars)
	}
	return RenderRequest{
		Key:             cmd.APIKey,
		TemplateName:    cmd.Target,
		MergeLanguage:   MergeLanguage,
		MergeVars:       vars,
		TemplateContent: []TemplateContent{},
	}
}

// BuildUpdateRequest builds the payload that replaces a template's code and
// text. Updates always publish; there is no draft mode.
func BuildUpdateRequest(cmd Command, code string, text *string) UpdateRequest {
	return UpdateRequest{
		Key:     cmd.APIKey,
		Name:    cmd.Target,
		Code:    code,
		Text:    text,
		Publish: true,
	}
}
