package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/config"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/engine"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/logging"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/metrics"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/policy"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/providers/aws/common"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/rulepacks/waste"
	"github.com/AditiSurve17/intelligent-cloud-waste-detector/internal/store"
)

const (
	defaultConfigPath = "cwd.yaml"
	defaultPolicyPath = "cwd-policy.yaml"
)

// errSilentExit makes main exit 1 without printing; the command has already
// reported why.
var errSilentExit = errors.New("exit 1")

// app is the state shared by every subcommand: flags, loaded config and
// lazily created AWS and storage handles. Tests preset aws and st.
type app struct {
	configPath string
	policyPath string
	logLevel   string
	profile    string

	cfg     *config.Config
	cfgErrs []error
	policy  *policy.PolicyConfig
	polErr  error
	logger  *slog.Logger

	aws        common.AWSClientProvider
	awsProfile *common.ProfileConfig
	st         store.Store
}

func newApp() *app {
	return &app{aws: common.NewDefaultAWSClientProvider()}
}

// load runs before every subcommand. An explicitly named policy file must
// exist; the default one is optional.
func (a *app) load(cmd *cobra.Command) error {
	if err := a.loadLenient(cmd); err != nil {
		return err
	}
	if len(a.cfgErrs) > 0 {
		return fmt.Errorf("invalid config %s: %w", a.configPath, errors.Join(a.cfgErrs...))
	}
	return a.polErr
}

// loadLenient loads what it can and records config and policy problems
// instead of failing on them. Only an unreadable config file is an error.
func (a *app) loadLenient(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfgErrs = cfg.Validate()
	if a.profile != "" {
		cfg.AWS.Profile = a.profile
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	logger, err := logging.New(cmd.ErrOrStderr(), level, cfg.Log.Format)
	if err != nil {
		// Fall back so diagnostics can still be printed.
		logger, _ = logging.New(cmd.ErrOrStderr(), "info", "text")
		a.cfgErrs = append(a.cfgErrs, err)
	}
	a.logger = logger

	pol, err := policy.LoadPolicy(a.policyPath)
	switch {
	case err == nil:
		a.policy = pol
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("policy"):
	default:
		a.polErr = err
	}
	return nil
}

// awsConfig loads the configured profile once per process.
func (a *app) awsConfig(ctx context.Context) (*common.ProfileConfig, error) {
	if a.awsProfile != nil {
		return a.awsProfile, nil
	}
	p, err := a.aws.LoadProfile(ctx, a.cfg.AWS.Profile, a.cfg.AWS.Region)
	if err != nil {
		return nil, err
	}
	a.awsProfile = p
	return p, nil
}

// store opens the configured backend once per process.
func (a *app) store(ctx context.Context) (store.Store, error) {
	if a.st != nil {
		return a.st, nil
	}
	sc := a.cfg.Storage
	var (
		st  store.Store
		err error
	)
	switch sc.Backend {
	case config.BackendMemory:
		st = store.NewMemory()
	case config.BackendSQLite:
		st, err = store.OpenSQLite(sc.SQLitePath)
	case config.BackendPostgres:
		st, err = store.OpenPostgres(ctx, sc.PostgresDSN)
	case config.BackendDynamoDB:
		var p *common.ProfileConfig
		p, err = a.awsConfig(ctx)
		if err == nil {
			st = store.NewDynamoDB(dynamodb.NewFromConfig(p.Config), store.DynamoDBTables{
				Recommendations: sc.RecommendationsTable,
				Usage:           sc.UsageTable,
				Predictions:     sc.PredictionsTable,
			})
		}
	default:
		err = fmt.Errorf("unknown storage backend %q", sc.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", sc.Backend, err)
	}
	a.st = st
	return st, nil
}

func (a *app) close() {
	if a.st == nil {
		return
	}
	if err := a.st.Close(); err != nil {
		a.logger.Warn("closing store failed", "error", err)
	}
}

// pipeline wires the scoring engine to st. m may be nil.
func (a *app) pipeline(st store.Store, m *metrics.Metrics) *engine.Pipeline {
	registry := waste.NewRegistry()
	registry.SetLogger(a.logger)
	return engine.NewPipeline(engine.Options{
		Registry:        registry,
		Recommendations: st,
		Usage:           st,
		Policy:          a.policy,
		PrimaryRegion:   a.cfg.Pipeline.PrimaryRegion,
		MinCost:         a.cfg.Pipeline.MinCost,
		Metrics:         m,
		Logger:          a.logger,
	})
}

// s3Client returns the S3 client of the configured profile.
func (a *app) s3Client(ctx context.Context) (common.S3Client, error) {
	p, err := a.awsConfig(ctx)
	if err != nil {
		return nil, err
	}
	return p.Clients.S3, nil
}

func requireBucket(name, bucket string) error {
	if bucket == "" {
		return fmt.Errorf("%s bucket is not configured", name)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
