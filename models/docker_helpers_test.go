package models_test

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/labstockhq/labstock_backend/config"
	"github.com/labstockhq/labstock_backend/models"
	"github.com/labstockhq/labstock_backend/utils"
)

// setupIntegrationDB starts a throwaway MySQL container, connects the global
// DB handle to it and runs migrations. Tests calling it are skipped unless
// INTEGRATION_TESTS=1 (requires docker). Redis stays disabled; the row locks
// carry correctness on their own.
func setupIntegrationDB(t *testing.T) context.Context {
	t.Helper()
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}

	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "labstock_test")

	config.ConnectDatabaseWithRetry()
	models.MigrateTable()

	ctx := context.Background()
	ctx = utils.SetUserIdInContext(ctx, 1)
	ctx = utils.SetUserNameInContext(ctx, "Test Admin")
	ctx = utils.SetUserRoleInContext(ctx, string(models.UserRoleAdmin))
	return ctx
}

// seedOrderedRequest walks a fresh request to Ordered: quote attached, PO
// recorded. Line items: 10x anti-CD3 antibody, 4x pipette tip rack.
func seedOrderedRequest(t *testing.T, ctx context.Context) *models.Request {
	t.Helper()
	request, err := models.CreateRequest(ctx, &models.NewRequest{
		VendorId:     7,
		ProjectCodes: []string{"NIH-R01-2026"},
		LineItems: []models.NewRequestLineItem{
			{ProductName: "Anti-CD3 antibody", CatalogNumber: "AB-100", Brand: "BioLegend", QuantityOrdered: 10},
			{ProductName: "Pipette tip rack 200uL", CatalogNumber: "PT-200", Brand: "Eppendorf", QuantityOrdered: 4},
		},
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if _, err := models.TransitionRequestStatus(ctx, request.ID, models.RequestStatusQuoteRequested, false); err != nil {
		t.Fatalf("transition to QuoteRequested: %v", err)
	}
	if _, err := models.AttachQuoteDocument(ctx, request.ID, "quotes/q-1001.pdf"); err != nil {
		t.Fatalf("AttachQuoteDocument: %v", err)
	}
	if _, err := models.RecordPurchaseOrder(ctx, request.ID, "PO-2026-0042", ""); err != nil {
		t.Fatalf("RecordPurchaseOrder: %v", err)
	}
	request, err = models.GetRequest(ctx, request.ID)
	if err != nil {
		t.Fatalf("GetRequest: %v", err)
	}
	if request.CurrentStatus != models.RequestStatusOrdered {
		t.Fatalf("expected Ordered after PO, got %s", request.CurrentStatus)
	}
	return request
}

func lineByCatalog(t *testing.T, request *models.Request, catalogNumber string) *models.RequestLineItem {
	t.Helper()
	for i := range request.LineItems {
		if request.LineItems[i].CatalogNumber == catalogNumber {
			return &request.LineItems[i]
		}
	}
	t.Fatalf("line item %s not found", catalogNumber)
	return nil
}

func onHand(t *testing.T, productName, catalogNumber, brand string) int {
	t.Helper()
	db := config.GetDB()
	var record models.InventoryRecord
	err := db.Where("product_name = ? AND catalog_number = ? AND brand = ?",
		productName, catalogNumber, brand).First(&record).Error
	if err != nil {
		return 0
	}
	return record.QuantityOnHand
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("labstock-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=labstock_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
		"--default-authentication-plugin=mysql_native_password",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	// wait until ready
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		_, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent")
		if err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// Example: "127.0.0.1:49154\n"
	re := regexp.MustCompile(`:(\d+)`)
	m := re.FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	cmd := exec.Command("docker", args...)
	b, err := cmd.CombinedOutput()
	return string(b), err
}
