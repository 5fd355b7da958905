package core

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"pkt.systems/codeyard/schema"
)

const (
	defaultScriptProject = "my-project"
	defaultScriptOutput  = "dist"
	defaultScriptBuild   = "npm run build"
	noEnvironmentLine    = "# No environment variables"
	scriptNotAvailable   = "# Deployment script not available"
)

var scriptTemplates = map[schema.ProviderID]string{
	"vercel": `# Vercel Deployment Script
npm install -g vercel
vercel --prod --name {{ .ProjectName }}

# Environment Variables
{{ .ExportLines }}
`,
	"netlify": `# Netlify Deployment Script
npm install -g netlify-cli
netlify deploy --prod --dir {{ .OutputDirectory }}

# Build Command: {{ .BuildCommand }}
`,
	"aws": `# AWS S3 Deployment Script
aws s3 sync {{ .OutputDirectory }} s3://{{ .ProjectName }}
aws cloudfront create-invalidation --distribution-id YOUR_DISTRIBUTION_ID --paths "/*"
`,
	"heroku": `# Heroku Deployment Script
git add .
git commit -m "Deploy to Heroku"
git push heroku main

# Set environment variables:
{{ .HerokuLines }}
`,
	"digitalocean": `# DigitalOcean App Platform
doctl apps create --spec app.yaml

# Project: {{ .ProjectName }}
# Build Command: {{ .BuildCommand }}
`,
	"firebase": `# Firebase Deployment Script
npm install -g firebase-tools
firebase login
firebase init hosting
firebase deploy --project {{ .ProjectName }}
`,
}

var parsedScripts = func() map[schema.ProviderID]*template.Template {
	out := make(map[schema.ProviderID]*template.Template, len(scriptTemplates))
	for id, body := range scriptTemplates {
		out[id] = template.Must(template.New(string(id)).Option("missingkey=error").Parse(body))
	}
	return out
}()

type scriptData struct {
	ProjectName     string
	OutputDirectory string
	BuildCommand    string
	ExportLines     string
	HerokuLines     string
}

// RenderDeploymentScript renders the manual deployment script for provider.
// Providers without a template get a placeholder comment.
func RenderDeploymentScript(provider schema.ProviderID, cfg schema.DeployConfig) (string, error) {
	tmpl, ok := parsedScripts[provider]
	if !ok {
		return scriptNotAvailable, nil
	}
	data := scriptData{
		ProjectName:     valueOr(cfg.ProjectName, defaultScriptProject),
		OutputDirectory: valueOr(cfg.OutputDirectory, defaultScriptOutput),
		BuildCommand:    valueOr(cfg.BuildCommand, defaultScriptBuild),
		ExportLines:     envLines("export %s=%s", cfg.EnvironmentVariables),
		HerokuLines:     envLines("heroku config:set %s=%s", cfg.EnvironmentVariables),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s script: %w", provider, err)
	}
	return buf.String(), nil
}

// envLines formats env in key order so scripts are reproducible.
func envLines(format string, env map[string]string) string {
	if len(env) == 0 {
		return noEnvironmentLine
	}
	keys := make([]string, 0, len(env))
	for key := range env {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf(format, key, env[key]))
	}
	return strings.Join(lines, "\n")
}

func valueOr(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
