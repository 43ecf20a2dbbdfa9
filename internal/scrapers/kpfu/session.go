// session.go drives the portal through a real browser, the curriculum is
// rendered client side so plain http requests only see an empty shell.

package kpfu

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"magistrant/internal/components/assert"
	"magistrant/internal/components/telemetry"
	"magistrant/internal/curriculum"

	"github.com/chromedp/chromedp"
)

const (
	report_session_launch     = "session.launch"
	report_session_login      = "session.login"
	report_session_curriculum = "session.open-curriculum"
	report_session_cohort     = "session.select-cohort"
)

const (
	selectorLoginLink   = `a.lk-link`
	selectorUsername    = `input[name="p_login"]`
	selectorPassword    = `input[name="p_pass"]`
	selectorSubmit      = `//input[@value='Отправить']`
	selectorSecondYear  = `//label[contains(@class, 'ant-radio-button-wrapper') and contains(., '2-й курс')]`
	selectorTableBody   = `//table/tbody`
	// the table is first rendered with a single placeholder cell, a row with
	// several cells means the data has arrived
	selectorTableData   = `//table/tbody/tr[count(td) > 1 and not(contains(@class, 'ant-table-placeholder')) and not(contains(@class, 'ant-table-measure-row'))]`
	cohortSecondYearMin = 3
)

// CohortOutcome tells whether the curriculum view had to be switched to the
// second year cohort and whether that worked.
type CohortOutcome int

const (
	// CohortDefault means no switch was needed.
	CohortDefault CohortOutcome = iota
	CohortSelected
	// CohortFailed means the switch was needed but the filter could not be
	// clicked, the table shown is the default cohort's.
	CohortFailed
)

func (c CohortOutcome) String() string {
	switch c {
	case CohortDefault:
		return "default"
	case CohortSelected:
		return "selected"
	case CohortFailed:
		return "failed"
	}
	return fmt.Sprintf("CohortOutcome(%d)", int(c))
}

// Page is the curriculum as rendered for a term.
type Page struct {
	Table  curriculum.Table
	Cohort CohortOutcome
}

// Session is one authenticated browsing session on the portal.
type Session interface {
	Login(ctx context.Context, username, password string) error
	OpenCurriculum(ctx context.Context, term int) (Page, error)
	// Close releases the browser, it is safe to call more than once.
	Close() error
}

// Launcher starts a fresh Session.
type Launcher func(ctx context.Context) (Session, error)

// NewLauncher returns a Launcher that starts chromedp sessions.
func NewLauncher(config Config, tel telemetry.API) Launcher {
	return func(ctx context.Context) (Session, error) {
		session, err := Launch(ctx, config, tel)
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}

// ChromeSession is a Session backed by a chromium instance (or a tab of a
// remote one).
type ChromeSession struct {
	config     Config
	tel        telemetry.API
	browserCtx context.Context

	closeOnce sync.Once
	cancel    func()
}

func Launch(ctx context.Context, config Config, tel telemetry.API) (*ChromeSession, error) {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("kpfu", tel)

	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if config.RemoteUrl != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(context.Background(), config.RemoteUrl)
	} else {
		opts := append(
			chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", !config.ShowBrowser),
			chromedp.WindowSize(1280, 1024),
		)
		if config.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(config.ExecPath))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(context.Background(), opts...)
	}
	browserCtx, cancelBrowser := chromedp.NewContext(
		allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			tel.ReportDebug(fmt.Sprintf("chromedp: "+format, args...))
		}),
	)

	s := &ChromeSession{
		config:     config,
		tel:        tel,
		browserCtx: browserCtx,
		cancel: func() {
			cancelBrowser()
			cancelAlloc()
		},
	}

	// the first Run starts the browser, it is bound to browserCtx rather than
	// ctx so the browser outlives this call. A deadline context would close
	// the browser once cancelled, so the timeout tears the session down instead.
	stop := context.AfterFunc(ctx, s.cancel)
	timer := time.AfterFunc(config.timeout(), s.cancel)
	err := chromedp.Run(browserCtx)
	timedOut := !timer.Stop()
	stop()
	if err != nil {
		s.Close()
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if timedOut {
			err = fmt.Errorf("launch browser: %w: %w", ErrTimeout, err)
			tel.ReportBroken(report_session_launch, err)
			return nil, err
		}
		tel.ReportBroken(report_session_launch, err)
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	if timedOut {
		s.Close()
		err = fmt.Errorf("launch browser: %w", ErrTimeout)
		tel.ReportBroken(report_session_launch, err)
		return nil, err
	}
	return s, nil
}

// run executes actions with every wait bounded by the configured timeout, it
// stops early when ctx is cancelled.
func (s *ChromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	waitCtx, cancel := context.WithTimeout(s.browserCtx, s.config.timeout())
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(waitCtx, actions...)
	return timeoutError(waitCtx, err)
}

func (s *ChromeSession) Login(ctx context.Context, username, password string) error {
	s.tel.ReportDebug("logging in", "username", username)

	err := s.run(ctx, chromedp.Navigate(s.config.EntryUrl))
	if err != nil {
		err = stepError(ctx, ErrAuthFailure, "open entry page", err)
		s.tel.ReportBroken(report_session_login, err)
		return err
	}

	err = s.run(
		ctx,
		chromedp.WaitVisible(selectorLoginLink, chromedp.ByQuery),
		chromedp.Click(selectorLoginLink, chromedp.ByQuery),
		chromedp.WaitVisible(selectorUsername, chromedp.ByQuery),
		chromedp.WaitVisible(selectorPassword, chromedp.ByQuery),
	)
	if err != nil {
		err = stepError(ctx, ErrAuthFailure, "login form", err)
		s.tel.ReportBroken(report_session_login, err)
		return err
	}

	err = s.run(
		ctx,
		chromedp.SendKeys(selectorUsername, username, chromedp.ByQuery),
		chromedp.SendKeys(selectorPassword, password, chromedp.ByQuery),
		chromedp.Click(selectorSubmit, chromedp.BySearch),
	)
	if err != nil {
		err = stepError(ctx, ErrAuthFailure, "submit credentials", err)
		s.tel.ReportBroken(report_session_login, err)
		return err
	}

	// a successful login redirects away from the form, staying on it means
	// the credentials were rejected
	err = s.run(ctx, chromedp.WaitNotPresent(selectorPassword, chromedp.ByQuery))
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("wait for redirect: %w", ctx.Err())
		}
		s.tel.ReportDebug("login rejected", "username", username, "err", err)
		return fmt.Errorf("wait for redirect: %w", ErrAuthFailure)
	}
	return nil
}

func (s *ChromeSession) OpenCurriculum(ctx context.Context, term int) (Page, error) {
	err := s.run(ctx, chromedp.Navigate(s.config.CurriculumUrl))
	if err != nil {
		err = stepError(ctx, ErrNotFound, "open curriculum", err)
		s.tel.ReportBroken(report_session_curriculum, err)
		return Page{}, err
	}

	s.settleDown(ctx)
	if ctx.Err() != nil {
		return Page{}, ctx.Err()
	}

	cohort := CohortDefault
	if term >= cohortSecondYearMin {
		cohort = s.selectSecondYear(ctx)
		if ctx.Err() != nil {
			return Page{}, ctx.Err()
		}
	}

	var markup string
	err = s.run(
		ctx,
		chromedp.WaitReady(selectorTableData, chromedp.BySearch),
		chromedp.OuterHTML(selectorTableBody, &markup, chromedp.BySearch),
	)
	if err != nil {
		err = stepError(ctx, ErrNotFound, "wait for table", err)
		s.tel.ReportBroken(report_session_curriculum, err)
		return Page{}, err
	}

	table, err := curriculum.ParseHTMLTable(strings.NewReader(markup))
	if err != nil {
		err = stepError(ctx, ErrNotFound, "parse table", err)
		s.tel.ReportBroken(report_session_curriculum, err)
		return Page{}, err
	}
	return Page{Table: table, Cohort: cohort}, nil
}

func (s *ChromeSession) selectSecondYear(ctx context.Context) CohortOutcome {
	err := s.run(
		ctx,
		chromedp.WaitVisible(selectorSecondYear, chromedp.BySearch),
		chromedp.Click(selectorSecondYear, chromedp.BySearch),
	)
	if err != nil {
		s.tel.ReportWarning(report_session_cohort, fmt.Errorf("could not select second year, using the default cohort: %w", err))
		return CohortFailed
	}
	s.settleDown(ctx)
	return CohortSelected
}

// settleDown gives the page the configured time to re-render.
func (s *ChromeSession) settleDown(ctx context.Context) {
	if s.config.settle() <= 0 {
		return
	}
	err := s.run(ctx, chromedp.Sleep(s.config.settle()))
	if err != nil && ctx.Err() == nil {
		s.tel.ReportWarning(report_session_curriculum, fmt.Errorf("settle: %w", err))
	}
}

func (s *ChromeSession) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}
