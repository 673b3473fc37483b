// Package leader provides Kubernetes Lease-based leader election so that only
// one replica owns the auction session and accepts operator commands.
package leader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/tools/leaderelection"
	"k8s.io/client-go/tools/leaderelection/resourcelock"

	"github.com/jensholdgaard/auctioneer/internal/config"
)

var errMissingCallbacks = errors.New("leader election: OnStartedLeading and OnStoppedLeading are required")

// Callbacks are invoked as leadership changes hands.
type Callbacks struct {
	// OnStartedLeading runs when this replica takes the lease. It should block
	// until ctx is done.
	OnStartedLeading func(ctx context.Context)
	// OnStoppedLeading runs when the lease is lost or released.
	OnStoppedLeading func()
	// OnNewLeader, if set, is told about every other replica that wins.
	OnNewLeader func(identity string)
}

// Identity is the name this replica holds the lease under.
func Identity(cfg config.LeaderElectionConfig) string {
	if cfg.Identity != "" {
		return cfg.Identity
	}
	if name := os.Getenv("POD_NAME"); name != "" {
		return name
	}
	host, err := os.Hostname()
	if err != nil {
		return "auctioneer"
	}
	return host
}

// ClientFactory builds the clientset used for the lease. Tests swap it out.
var ClientFactory = func(cfg config.LeaderElectionConfig) (kubernetes.Interface, error) {
	var (
		restCfg *rest.Config
		err     error
	)
	if cfg.Kubeconfig != "" {
		restCfg, err = clientcmd.BuildConfigFromFlags("", cfg.Kubeconfig)
	} else {
		restCfg, err = rest.InClusterConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("building kubernetes config: %w", err)
	}
	client, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return client, nil
}

// Run takes part in leader election until ctx is done.
func Run(ctx context.Context, cfg config.LeaderElectionConfig, logger *slog.Logger, cb Callbacks) error {
	if cb.OnStartedLeading == nil || cb.OnStoppedLeading == nil {
		return errMissingCallbacks
	}

	id := Identity(cfg)
	logger = logger.With(
		slog.String("identity", id),
		slog.String("lease", cfg.LeaseNamespace+"/"+cfg.LeaseName),
	)

	client, err := ClientFactory(cfg)
	if err != nil {
		return fmt.Errorf("leader election client: %w", err)
	}

	elector, err := leaderelection.NewLeaderElector(leaderelection.LeaderElectionConfig{
		Lock: &resourcelock.LeaseLock{
			LeaseMeta:  metav1.ObjectMeta{Name: cfg.LeaseName, Namespace: cfg.LeaseNamespace},
			Client:     client.CoordinationV1(),
			LockConfig: resourcelock.ResourceLockConfig{Identity: id},
		},
		LeaseDuration:   cfg.LeaseDuration,
		RenewDeadline:   cfg.RenewDeadline,
		RetryPeriod:     cfg.RetryPeriod,
		ReleaseOnCancel: true,
		Name:            cfg.LeaseName,
		Callbacks: leaderelection.LeaderCallbacks{
			OnStartedLeading: func(ctx context.Context) {
				logger.InfoContext(ctx, "took the auction lease")
				cb.OnStartedLeading(ctx)
			},
			OnStoppedLeading: func() {
				logger.Info("released the auction lease")
				cb.OnStoppedLeading()
			},
			OnNewLeader: func(holder string) {
				if holder == id {
					return
				}
				logger.Info("auction owned by another replica", slog.String("leader", holder))
				if cb.OnNewLeader != nil {
					cb.OnNewLeader(holder)
				}
			},
		},
	})
	if err != nil {
		return fmt.Errorf("configuring leader election: %w", err)
	}

	logger.InfoContext(ctx, "waiting for the auction lease")
	elector.Run(ctx)
	return nil
}
