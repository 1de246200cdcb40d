package etcd

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"github.com/dkeye/Rota/internal/core"
	"github.com/dkeye/Rota/internal/storage/storetest"
)

func etcdEndpoints() []string {
	if v := os.Getenv("ETCD_ENDPOINTS"); v != "" {
		return strings.Split(v, ",")
	}
	return []string{"http://localhost:2379"}
}

func etcdForTesting(t *testing.T) *clientv3.Client {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   etcdEndpoints(),
		DialTimeout: time.Second,
		DialOptions: []grpc.DialOption{grpc.WithBlock()},
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Skipf("Couldn't connect to etcd, skipping: %v", err)
	}
	t.Cleanup(func() { _ = cli.Close() })
	return cli
}

func TestConformance(t *testing.T) {
	cli := etcdForTesting(t)
	storetest.Run(t, func(t *testing.T) core.RosterStore {
		prefix := "/rota-test/" + strings.ReplaceAll(t.Name(), "/", "_") + "/" + time.Now().Format("150405.000000000")
		t.Cleanup(func() {
			_, _ = cli.Delete(context.Background(), prefix, clientv3.WithPrefix())
		})
		return New(cli, prefix)
	}, storetest.Options{})
}

func TestDialRequiresEndpoints(t *testing.T) {
	_, err := Dial(nil, time.Second, "")
	require.Error(t, err)
}
