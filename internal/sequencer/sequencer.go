// Package sequencer runs the fixed configure, compile, install pipeline
// against a buildsys.Driver.
package sequencer

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/goplus/llpack/pkgs/buildsys"
	"github.com/qiniu/x/log"
)

// State is the state of a sequencer run.
type State int

const (
	Idle State = iota
	Configuring
	Compiling
	Installing
	Done
	Failed
)

var stateNames = [...]string{"idle", "configuring", "compiling", "installing", "done", "failed"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Step is one of the three pipeline steps.
type Step int

const (
	Configure Step = iota
	Compile
	Install
)

var stepNames = [...]string{"configure", "compile", "install"}

func (s Step) String() string {
	if s >= 0 && int(s) < len(stepNames) {
		return stepNames[s]
	}
	return fmt.Sprintf("Step(%d)", int(s))
}

// Status is the status of a single step.
type Status int

const (
	Pending Status = iota
	Running
	Succeeded
	StepFailed
)

var statusNames = [...]string{"pending", "running", "succeeded", "failed"}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// Tree names the directories of one run. The staging root is owned by the
// run: it is created before Install and removed again if the run fails.
type Tree struct {
	SourceDir   string
	BuildDir    string
	StagingRoot string
}

// Result is the outcome of a successful run.
type Result struct {
	StagingRoot string
}

// Sequencer drives one build. It is not reusable.
type Sequencer struct {
	driver   buildsys.Driver
	settings buildsys.Settings
	state    State
	steps    [3]Status
}

// New returns a sequencer that runs driver with settings.
func New(driver buildsys.Driver, settings buildsys.Settings) *Sequencer {
	return &Sequencer{driver: driver, settings: settings}
}

// State returns the current state.
func (s *Sequencer) State() State {
	return s.state
}

// Status returns the status of step.
func (s *Sequencer) Status(step Step) Status {
	return s.steps[step]
}

// Run executes configure, compile and install in order, stopping at the
// first failure. defs are passed to the driver as-is.
func (s *Sequencer) Run(ctx context.Context, tree Tree, defs buildsys.Definitions) (*Result, error) {
	if s.state != Idle {
		return nil, ErrAlreadyRun
	}

	s.enter(Configure, Configuring)
	err := s.driver.Configure(ctx, buildsys.ConfigureRequest{
		SourceDir:   tree.SourceDir,
		BuildDir:    tree.BuildDir,
		StagingRoot: tree.StagingRoot,
		Definitions: defs,
		Settings:    s.settings,
	})
	if err != nil {
		return nil, s.fail(Configure, tree, err)
	}
	s.succeed(Configure)

	s.enter(Compile, Compiling)
	if err := s.driver.Build(ctx, tree.BuildDir, s.settings); err != nil {
		return nil, s.fail(Compile, tree, err)
	}
	s.succeed(Compile)

	s.enter(Install, Installing)
	if err := os.MkdirAll(tree.StagingRoot, 0o755); err != nil {
		return nil, s.fail(Install, tree, err)
	}
	if err := s.driver.Install(ctx, tree.BuildDir, tree.StagingRoot); err != nil {
		return nil, s.fail(Install, tree, err)
	}
	s.succeed(Install)

	s.state = Done
	log.Debugf("sequencer: %s", s.state)
	return &Result{StagingRoot: tree.StagingRoot}, nil
}

func (s *Sequencer) enter(step Step, state State) {
	s.steps[step] = Running
	s.state = state
	log.Debugf("sequencer: %s", state)
}

func (s *Sequencer) succeed(step Step) {
	s.steps[step] = Succeeded
	log.Debugf("sequencer: %s succeeded", step)
}

func (s *Sequencer) fail(step Step, tree Tree, err error) error {
	s.steps[step] = StepFailed
	s.state = Failed
	log.Warnf("sequencer: %s failed: %v", step, err)
	if tree.StagingRoot != "" {
		if rmErr := os.RemoveAll(tree.StagingRoot); rmErr != nil {
			log.Warnf("sequencer: release staging root: %v", rmErr)
		}
	}
	return newStepError(step, err)
}

// -----------------------------------------------------------------------------

var (
	// ErrBuild is matched by every step failure.
	ErrBuild = errors.New("build failed")

	// ErrAlreadyRun is returned when Run is called twice.
	ErrAlreadyRun = errors.New("sequencer already ran")
)

// stepError is the shared shape of the step failures.
type stepError struct {
	Diagnostics string
	Err         error
}

func (e *stepError) format(step Step) string {
	return fmt.Sprintf("%s: %v", step, e.Err)
}

// ConfigureError reports a failed configure step.
type ConfigureError struct{ stepError }

func (e *ConfigureError) Error() string        { return e.format(Configure) }
func (e *ConfigureError) Unwrap() error        { return e.Err }
func (e *ConfigureError) Is(target error) bool { return target == ErrBuild }

// CompileError reports a failed compile step.
type CompileError struct{ stepError }

func (e *CompileError) Error() string        { return e.format(Compile) }
func (e *CompileError) Unwrap() error        { return e.Err }
func (e *CompileError) Is(target error) bool { return target == ErrBuild }

// InstallError reports a failed install step.
type InstallError struct{ stepError }

func (e *InstallError) Error() string        { return e.format(Install) }
func (e *InstallError) Unwrap() error        { return e.Err }
func (e *InstallError) Is(target error) bool { return target == ErrBuild }

func newStepError(step Step, err error) error {
	se := stepError{Diagnostics: buildsys.Diagnostics(err), Err: err}
	switch step {
	case Configure:
		return &ConfigureError{se}
	case Compile:
		return &CompileError{se}
	default:
		return &InstallError{se}
	}
}

// Diagnostics returns the tool output carried by a step failure.
func Diagnostics(err error) string {
	var (
		ce *ConfigureError
		be *CompileError
		ie *InstallError
	)
	switch {
	case errors.As(err, &ce):
		return ce.Diagnostics
	case errors.As(err, &be):
		return be.Diagnostics
	case errors.As(err, &ie):
		return ie.Diagnostics
	}
	return ""
}
