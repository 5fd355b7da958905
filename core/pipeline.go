package core

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"pkt.systems/codeyard/schema"
	"pkt.systems/pslog"
)

// pipelineJob is the private copy of the inputs a pipeline runs on.
type pipelineJob struct {
	provider schema.ProviderID
	info     schema.ProviderConfig
	project  string
	files    map[string]string
	config   schema.DeployConfig
}

// run executes validate, prepare, build, deploy and finalize in order. ctx is
// cancelled by CancelDeployment and checked only between stages; stage work
// itself runs on the service lifetime context so a started stage completes
// unless the service shuts down.
func (o *orchestrator) run(ctx context.Context, d *deployment, job pipelineJob) {
	defer o.wg.Done()
	defer d.cancel()

	if !o.enterStage(ctx, d, schema.StageValidate, schema.DeploymentBuilding, 10, "Validating project files...") {
		return
	}
	if err := validateFiles(job.files); err != nil {
		o.fail(ctx, d, err)
		return
	}

	if !o.enterStage(ctx, d, schema.StagePrepare, schema.DeploymentBuilding, 25, "Preparing build environment...") {
		return
	}
	if err := sleepContext(o.baseCtx, o.cfg.StageDelays.Prepare); err != nil {
		o.interrupt(ctx, d)
		return
	}

	if !o.enterStage(ctx, d, schema.StageBuild, schema.DeploymentBuilding, 50, "Building project...") {
		return
	}
	build, err := o.build(d, job)
	if err != nil {
		o.stageFailed(ctx, d, err)
		return
	}
	o.appendLogs(d, build.Logs)

	if !o.enterStage(ctx, d, schema.StageDeploy, schema.DeploymentDeploying, 75, fmt.Sprintf("Deploying to %s...", job.provider)) {
		return
	}
	published, err := o.publisher.Publish(o.baseCtx, PublishRequest{
		DeploymentID: d.id,
		Provider:     job.provider,
		ProviderName: job.info.Name,
		ProjectName:  job.project,
		Artifacts:    build.Artifacts,
		Config:       job.config,
	})
	if err != nil {
		var stageErr *StageError
		if !errors.As(err, &stageErr) {
			err = NewStageError(StageErrorDeploy, schema.StageDeploy, "", err)
		}
		o.stageFailed(ctx, d, err)
		return
	}
	o.appendLogs(d, published.Logs)

	if !o.enterStage(ctx, d, schema.StageFinalize, schema.DeploymentDeploying, 90, "Configuring domain and CDN...") {
		return
	}
	if err := sleepContext(o.baseCtx, o.cfg.StageDelays.Finalize); err != nil {
		o.interrupt(ctx, d)
		return
	}
	o.complete(ctx, d, job)
}

// enterStage commits the stage's status, progress and opening log line. It
// reports false when the pipeline must stop.
func (o *orchestrator) enterStage(ctx context.Context, d *deployment, stage schema.Stage, status schema.DeploymentStatus, progress int, line string) bool {
	log := pslog.Ctx(ctx)
	if ctx.Err() != nil {
		o.interrupt(ctx, d)
		return false
	}
	rec, ok := d.commit(func(next *deploymentRecord) {
		next.status = status
		next.progress = progress
		next.logs = append(next.logs, line)
	})
	if !ok {
		log.Debug("deployment stage skipped", "stage", stage, "status", rec.status)
		return false
	}
	o.emitDeployment(d, schema.DeploymentEventProgress, rec, []string{line})
	log.Debug("deployment stage entered", "stage", stage, "progress", progress)
	return true
}

func (o *orchestrator) build(d *deployment, job pipelineJob) (BuildResult, error) {
	buildCtx, cancel := context.WithTimeout(o.baseCtx, job.info.BuildTimeout)
	defer cancel()
	result, err := o.builder.Build(buildCtx, BuildRequest{
		DeploymentID: d.id,
		Provider:     job.provider,
		ProjectName:  job.project,
		Files:        job.files,
		Config:       job.config,
	})
	if err != nil {
		var stageErr *StageError
		switch {
		case errors.As(err, &stageErr):
			return BuildResult{}, err
		case errors.Is(err, context.DeadlineExceeded):
			return BuildResult{}, NewStageError(StageErrorBuild, schema.StageBuild, fmt.Sprintf("build timed out after %s", job.info.BuildTimeout), err)
		default:
			return BuildResult{}, NewStageError(StageErrorBuild, schema.StageBuild, "", err)
		}
	}
	if len(result.Artifacts) == 0 {
		return BuildResult{}, NewStageError(StageErrorBuild, schema.StageBuild, "build produced no artifacts", nil)
	}
	return result, nil
}

func (o *orchestrator) appendLogs(d *deployment, lines []string) {
	if len(lines) == 0 {
		return
	}
	rec, ok := d.commit(func(next *deploymentRecord) {
		next.logs = append(next.logs, lines...)
	})
	if ok {
		o.emitDeployment(d, schema.DeploymentEventProgress, rec, lines)
	}
}

// stageFailed records err unless the failure was caused by service shutdown.
func (o *orchestrator) stageFailed(ctx context.Context, d *deployment, err error) {
	if o.baseCtx.Err() != nil {
		o.interrupt(ctx, d)
		return
	}
	o.fail(ctx, d, err)
}

func (o *orchestrator) fail(ctx context.Context, d *deployment, err error) {
	message := err.Error()
	line := fmt.Sprintf("Deployment failed: %s", message)
	rec, ok := d.commit(func(next *deploymentRecord) {
		next.status = schema.DeploymentFailed
		next.errMessage = message
		next.completedAt = o.now()
		next.logs = append(next.logs, line)
	})
	if !ok {
		return
	}
	o.emitDeployment(d, schema.DeploymentEventFinished, rec, []string{line})
	pslog.Ctx(ctx).Warn("deployment failed", "err", err, "progress", rec.progress)
}

// interrupt marks the deployment cancelled when shutdown stopped the
// pipeline. A deployment cancelled by the user is already terminal.
func (o *orchestrator) interrupt(ctx context.Context, d *deployment) {
	const line = "Deployment cancelled: service shutting down"
	rec, ok := d.commit(func(next *deploymentRecord) {
		next.status = schema.DeploymentCancelled
		next.completedAt = o.now()
		next.logs = append(next.logs, line)
	})
	if !ok {
		pslog.Ctx(ctx).Debug("deployment pipeline stopped", "status", rec.status)
		return
	}
	o.emitDeployment(d, schema.DeploymentEventFinished, rec, []string{line})
	pslog.Ctx(ctx).Info("deployment interrupted", "progress", rec.progress)
}

func (o *orchestrator) complete(ctx context.Context, d *deployment, job pipelineJob) {
	url := schema.ProviderURL(job.info.URLPattern, job.project)
	lines := []string{
		"Deployment completed successfully!",
		fmt.Sprintf("Your app is live at: %s", url),
	}
	if domain := strings.TrimSpace(job.config.CustomDomain); domain != "" && job.info.SupportsDomains {
		lines = append(lines, fmt.Sprintf("Custom domain %s pending DNS verification", domain))
	}
	rec, ok := d.commit(func(next *deploymentRecord) {
		next.status = schema.DeploymentSuccess
		next.progress = 100
		next.url = url
		next.completedAt = o.now()
		next.logs = append(next.logs, lines...)
	})
	if !ok {
		pslog.Ctx(ctx).Debug("deployment completion discarded", "status", rec.status)
		return
	}
	o.emitDeployment(d, schema.DeploymentEventFinished, rec, lines)
	pslog.Ctx(ctx).Info("deployment succeeded", "url", url, "duration_ms", rec.completedAt.Sub(rec.startedAt).Milliseconds())
}

func validateFiles(files map[string]string) error {
	if len(files) == 0 {
		return NewStageError(StageErrorValidation, schema.StageValidate, "No files provided", nil)
	}
	for name := range files {
		if strings.HasSuffix(name, ".html") || strings.HasSuffix(name, ".js") || path.Base(name) == "package.json" {
			return nil
		}
	}
	return NewStageError(StageErrorValidation, schema.StageValidate, "No recognizable web project files found", nil)
}
