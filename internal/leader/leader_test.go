package leader

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/kubernetes/fake"

	"github.com/jensholdgaard/auctioneer/internal/config"
)

func testConfig(identity string) config.LeaderElectionConfig {
	return config.LeaderElectionConfig{
		Enabled:        true,
		LeaseName:      "auctioneer-test",
		LeaseNamespace: "default",
		LeaseDuration:  2 * time.Second,
		RenewDeadline:  time.Second,
		RetryPeriod:    200 * time.Millisecond,
		Identity:       identity,
	}
}

func useClient(t *testing.T, client kubernetes.Interface) {
	t.Helper()
	orig := ClientFactory
	ClientFactory = func(config.LeaderElectionConfig) (kubernetes.Interface, error) { return client, nil }
	t.Cleanup(func() { ClientFactory = orig })
}

func TestIdentity(t *testing.T) {
	host, _ := os.Hostname()
	tests := []struct {
		name    string
		cfg     string
		podName string
		want    string
	}{
		{name: "configured", cfg: "replica-a", podName: "auctioneer-abc123", want: "replica-a"},
		{name: "pod name", podName: "auctioneer-abc123", want: "auctioneer-abc123"},
		{name: "hostname", want: host},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("POD_NAME", tt.podName)
			if tt.want == "" {
				t.Skip("cannot get hostname")
			}
			got := Identity(config.LeaderElectionConfig{Identity: tt.cfg})
			if got != tt.want {
				t.Errorf("Identity() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientFactory_MissingKubeconfig(t *testing.T) {
	_, err := ClientFactory(config.LeaderElectionConfig{Kubeconfig: t.TempDir() + "/missing.yaml"})
	if err == nil {
		t.Fatal("ClientFactory() with a missing kubeconfig succeeded, want error")
	}
}

func TestRun_RequiresCallbacks(t *testing.T) {
	err := Run(context.Background(), config.LeaderElectionConfig{}, slog.Default(), Callbacks{})
	if !errors.Is(err, errMissingCallbacks) {
		t.Fatalf("Run() error = %v, want %v", err, errMissingCallbacks)
	}
}

func TestRun_InvalidTimings(t *testing.T) {
	useClient(t, fake.NewSimpleClientset())

	cfg := testConfig("replica-a")
	cfg.LeaseDuration = time.Second
	cfg.RenewDeadline = 2 * time.Second // must be shorter than the lease
	err := Run(context.Background(), cfg, slog.Default(), Callbacks{
		OnStartedLeading: func(context.Context) {},
		OnStoppedLeading: func() {},
	})
	if err == nil {
		t.Fatal("Run() with renew deadline longer than lease succeeded, want error")
	}
}

func TestRun_AcquiresAndReleases(t *testing.T) {
	useClient(t, fake.NewSimpleClientset())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	acquired := make(chan struct{})
	stopped := make(chan struct{})
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- Run(runCtx, testConfig("replica-a"), slog.Default(), Callbacks{
			OnStartedLeading: func(ctx context.Context) {
				close(acquired)
				<-ctx.Done()
			},
			OnStoppedLeading: func() { close(stopped) },
		})
	}()

	select {
	case <-acquired:
	case <-ctx.Done():
		t.Fatal("timed out waiting for leadership")
	}
	stop()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for Run to return")
	}
	select {
	case <-stopped:
	case <-ctx.Done():
		t.Fatal("OnStoppedLeading was not called")
	}
}

func TestRun_StandbySeesLeader(t *testing.T) {
	useClient(t, fake.NewSimpleClientset())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	leading := make(chan struct{})
	go func() {
		_ = Run(ctx, testConfig("replica-a"), slog.Default(), Callbacks{
			OnStartedLeading: func(ctx context.Context) {
				close(leading)
				<-ctx.Done()
			},
			OnStoppedLeading: func() {},
		})
	}()
	select {
	case <-leading:
	case <-ctx.Done():
		t.Fatal("timed out waiting for replica-a to lead")
	}

	var once sync.Once
	seen := make(chan string, 1)
	go func() {
		_ = Run(ctx, testConfig("replica-b"), slog.Default(), Callbacks{
			OnStartedLeading: func(ctx context.Context) { <-ctx.Done() },
			OnStoppedLeading: func() {},
			OnNewLeader: func(identity string) {
				once.Do(func() { seen <- identity })
			},
		})
	}()

	select {
	case got := <-seen:
		if got != "replica-a" {
			t.Errorf("standby saw leader %q, want replica-a", got)
		}
	case <-ctx.Done():
		t.Fatal("standby never observed the leader")
	}
}
