//go:build integration

package mqtt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/microclaw/core/link"
)

func startMosquitto(ctx context.Context, t *testing.T) string {
	t.Helper()
	conf := "listener 1883\nallow_anonymous true\npersistence false\n"
	path := filepath.Join(t.TempDir(), "mosquitto.conf")
	require.NoError(t, os.WriteFile(path, []byte(conf), 0644))

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			HostFilePath:      path,
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("container start: %v", err)
	}
	t.Cleanup(func() { _ = cont.Terminate(context.Background()) })
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "1883")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

func TestManagerAgainstMosquitto(t *testing.T) {
	ctx := context.Background()
	broker := startMosquitto(ctx, t)

	probe := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("probe"))
	require.True(t, probe.Connect().WaitTimeout(5*time.Second))
	defer probe.Disconnect(100)
	status := make(chan string, 4)
	probe.Subscribe("microclaw/it-node/status", 1, func(_ paho.Client, m paho.Message) {
		status <- string(m.Payload())
	}).Wait()

	tr, err := NewPahoTransport(Config{Broker: broker, ClientID: "it-node", QoS: 1})
	require.NoError(t, err)
	topics := link.NewTopics("microclaw", "it-node", link.TopicTemplates{})
	m := link.NewManager(tr, topics, "0.0.0-test")

	commands := make(chan string, 1)
	m.OnMessage(func(_ string, payload []byte) { commands <- string(payload) })

	require.True(t, m.EnsureConnected(0))
	select {
	case s := <-status:
		assert.JSONEq(t, `{"status":"online","version":"0.0.0-test"}`, s)
	case <-time.After(5 * time.Second):
		t.Fatal("status not received")
	}

	probe.Publish(topics.Commands, 1, false, "status").Wait()
	require.Eventually(t, func() bool {
		m.Tick()
		return len(commands) == 1
	}, 5*time.Second, 20*time.Millisecond)
	assert.Equal(t, "status", <-commands)

	m.Close()
	assert.Equal(t, link.Disconnected, m.State())
}
