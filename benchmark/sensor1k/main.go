package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/structpb"
	farmGrpc "liyu1981.xyz/smart-farm-service/pkg/grpc"
)

var maxFields int = 50
var sensorsPerField int = 20
var httpHostPort string = "127.0.0.1:5001"
var grpcHostPort string = "127.0.0.1:50051"

var grpcClient farmGrpc.FarmServiceClient
var token string

var rndMu sync.Mutex
var rnd *rand.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))

var sensorTypes = []string{"moisture", "temperature", "waterLevel"}

func main() {
	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}

	fmt.Printf("http server verified\n")

	conn, err := grpc.NewClient(grpcHostPort, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		log.Fatal("Failed to connect to gRPC server:", err)
	}
	defer conn.Close()
	grpcClient = farmGrpc.NewFarmServiceClient(conn)

	fmt.Printf("gRPC client created\n")

	token = registerExpert()

	var startTime time.Time
	var usedTime time.Duration

	startTime = time.Now()
	fieldIDs := make([]string, maxFields)
	sensorIDs := make([]string, maxFields*sensorsPerField)
	wg := sync.WaitGroup{}
	for i := range maxFields {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fieldIDs[i] = createField(i)
			for j := range sensorsPerField {
				sensorIDs[i*sensorsPerField+j] = createSensor(fieldIDs[i], sensorTypes[j%len(sensorTypes)])
			}
			fmt.Printf("\rcreated field %v", i)
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	total := maxFields * (sensorsPerField + 1)
	fmt.Printf(
		"\rcreated %v fields and %v sensors: used time=%v seconds, throughput=%v action/second\n",
		maxFields, len(sensorIDs), usedTime.Seconds(), float64(total)/usedTime.Seconds(),
	)

	startTime = time.Now()
	wg = sync.WaitGroup{}
	for i := range sensorIDs {
		wg.Add(1)
		go func() {
			doAction(fieldIDs[i/sensorsPerField], sensorIDs[i])
			wg.Done()
		}()
	}
	wg.Wait()
	usedTime = time.Since(startTime)

	fmt.Printf(
		"\n\rdid actions for %v sensors: used time=%v seconds, throughput=%v action/second\n",
		len(sensorIDs), usedTime.Seconds(), float64(len(sensorIDs)*3)/usedTime.Seconds(),
	)
}

func flipCoin() bool {
	rndMu.Lock()
	defer rndMu.Unlock()
	return rnd.Int31n(100000)%2 == 0
}

func rndFloat64(min, max float64, decimal int) float64 {
	rndMu.Lock()
	val := min + rnd.Float64()*(max-min)
	rndMu.Unlock()
	multiplier := float64(math.Pow10(decimal))
	return float64(math.Round(float64(val)*float64(multiplier))) / multiplier
}

func postJSON(path string, payload any, out any) int {
	jsonData, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("http://%s%s", httpHostPort, path), bytes.NewBuffer(jsonData))
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			panic(err)
		}
	}
	return resp.StatusCode
}

// registerExpert needs the server started with FARM_ALLOW_EXPERT_SIGNUP=true.
func registerExpert() string {
	var auth struct {
		Token string `json:"token"`
	}
	status := postJSON("/api/auth/register", map[string]string{
		"name":     "bench",
		"email":    uuid.NewString() + "@bench.local",
		"password": "bench-password",
		"role":     "expert",
	}, &auth)
	if status != http.StatusCreated {
		log.Fatalf("register failed with status %d (is FARM_ALLOW_EXPERT_SIGNUP set?)", status)
	}
	return auth.Token
}

func createField(i int) string {
	var field struct {
		ID string `json:"id"`
	}
	status := postJSON("/api/fields", map[string]any{
		"farmId":   fmt.Sprintf("BENCH-%d-%s", i, uuid.NewString()[:8]),
		"name":     fmt.Sprintf("Bench field %d", i),
		"location": "Benchmark",
		"moisture": rndFloat64(30, 80, 1),
	}, &field)
	if status != http.StatusCreated {
		panic(fmt.Sprintf("create field failed with status %d", status))
	}
	return field.ID
}

func createSensor(fieldID, sensorType string) string {
	var sensor struct {
		ID string `json:"id"`
	}
	status := postJSON("/api/sensors", map[string]string{
		"fieldId":    fieldID,
		"sensorType": sensorType,
	}, &sensor)
	if status != http.StatusCreated {
		panic(fmt.Sprintf("create sensor failed with status %d", status))
	}
	return sensor.ID
}

func doAction(fieldID, sensorID string) {
	actions := []func(){
		genPostReadingAction(sensorID),
		genGetAlertsAction(fieldID),
		genGetReadingsAction(sensorID),
	}
	actionNames := []string{
		"PostReading",
		"GetAlerts",
		"GetReadings",
	}
	rndMu.Lock()
	rnd.Shuffle(len(actions), func(i, j int) {
		actions[i], actions[j] = actions[j], actions[i]
		actionNames[i], actionNames[j] = actionNames[j], actionNames[i]
	})
	rndMu.Unlock()

	for _, action := range actions {
		action()
	}
	fmt.Printf("\rdid actions %v for sensor %v", actionNames, sensorID)
}

func genPostReadingAction(sensorID string) func() {
	return func() {
		value := rndFloat64(0.0, 100.0, 1)

		if flipCoin() {
			status := postJSON("/api/readings", map[string]any{"sensorId": sensorID, "value": value}, nil)
			// 429 is the limiter doing its job
			if status != http.StatusCreated && status != http.StatusTooManyRequests {
				panic(fmt.Sprintf("post reading failed with status %d", status))
			}
			return
		}

		req, err := structpb.NewStruct(map[string]any{"sensorId": sensorID, "value": value})
		if err != nil {
			panic(err)
		}
		if _, err := grpcClient.IngestReading(context.Background(), req); err != nil {
			fmt.Printf("\ngrpc ingest for %s: %v\n", sensorID, err)
		}
	}
}

func genGetAlertsAction(fieldID string) func() {
	return func() {
		if flipCoin() {
			resp, err := http.Get(fmt.Sprintf("http://%s/api/alerts/%s", httpHostPort, fieldID))
			if err != nil {
				panic(err)
			}
			defer resp.Body.Close()
		} else {
			req, _ := structpb.NewStruct(map[string]any{"fieldId": fieldID})
			resp, err := grpcClient.ListAlerts(context.Background(), req)
			if err != nil || !resp.GetFields()["status"].GetStructValue().GetFields()["success"].GetBoolValue() {
				panic(fmt.Sprintf("err: %v, resp: %v", err, resp))
			}
		}
	}
}

func genGetReadingsAction(sensorID string) func() {
	return func() {
		resp, err := http.Get(fmt.Sprintf("http://%s/api/readings/%s", httpHostPort, sensorID))
		if err != nil {
			panic(err)
		}
		defer resp.Body.Close()
	}
}
