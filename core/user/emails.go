package user

// Email template bodies. core.EmailMessage.Render executes these with a
// core.ContextData root: .FrontendBaseURL and .Data (the TemplateData above).

const accountApprovedTextTemplate = `Hi {{.Data.Name}},

Your EduCanvas account has been approved. You can now sign in:

{{.FrontendBaseURL}}/auth/login
`

const accountApprovedHTMLTemplate = `<p>Hi {{.Data.Name}},</p>
<p>Your EduCanvas account has been approved. You can now
<a href="{{.FrontendBaseURL}}/auth/login">sign in</a>.</p>
`

const passwordResetTextTemplate = `Hi {{.Data.User.Name}},

You requested a password reset. Follow this link to choose a new password:

{{.FrontendBaseURL}}/auth/update-password?uid={{.Data.UID}}&token={{.Data.Token}}

If you did not request this, you can safely ignore this email.
`

const passwordResetHTMLTemplate = `<p>Hi {{.Data.User.Name}},</p>
<p>You requested a password reset.
<a href="{{.FrontendBaseURL}}/auth/update-password?uid={{.Data.UID}}&amp;token={{.Data.Token}}">Choose a new password</a>.</p>
<p>If you did not request this, you can safely ignore this email.</p>
`
