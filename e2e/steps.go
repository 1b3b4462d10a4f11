//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
)

// RegisterSteps registers all step definitions. tc is resolved per call
// because the scenario hook replaces the context before each scenario.
func RegisterSteps(sc *godog.ScenarioContext, tc func() *TestContext) {
	s := &steps{tc: tc}

	// Background steps
	sc.Step(`^hearth is running$`, s.hearthIsRunning)

	// Actor steps
	sc.Step(`^"([^"]*)" creates a household named "([^"]*)"$`, s.createsHousehold)
	sc.Step(`^"([^"]*)" joins the household as "([^"]*)"$`, s.joinsHousehold)
	sc.Step(`^I act as "([^"]*)"$`, s.actAs)
	sc.Step(`^I act as a stranger$`, s.actAsStranger)

	// Request steps
	sc.Step(`^I (GET|POST|DELETE) "([^"]*)"$`, s.request)
	sc.Step(`^I GET "([^"]*)" without authorization$`, s.getWithoutAuth)
	sc.Step(`^I register module "([^"]*)" as an operator$`, s.registerModule)
	sc.Step(`^I enable the "([^"]*)" module$`, s.enableModule)
	sc.Step(`^I disable the "([^"]*)" module$`, s.disableModule)
	sc.Step(`^I ask the "([^"]*)" module to "([^"]*)" with "([^"]*)"$`, s.generate)

	// Assertion steps
	sc.Step(`^the response status should be (\d+)$`, s.responseStatusShouldBe)
	sc.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, s.responseFieldShouldEqual)
	sc.Step(`^the usage history should contain (\d+) events?$`, s.usageHistoryCount)
	sc.Step(`^the usage history should contain an event with action "([^"]*)"$`, s.usageHistoryHasAction)
}

type steps struct {
	tc func() *TestContext
}

func (s *steps) hearthIsRunning(ctx context.Context) error {
	tc := s.tc()
	if err := tc.Do(http.MethodGet, "/health/ready", nil, nil); err != nil {
		return err
	}
	return s.responseStatusShouldBe(ctx, http.StatusOK)
}

func (s *steps) createsHousehold(ctx context.Context, who, name string) error {
	tc := s.tc()
	owner, err := tc.newActor(who)
	if err != nil {
		return err
	}
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-")) + "-" + uuid.NewString()[:8]
	if err := tc.Do(http.MethodPost, "/v1/tenants", map[string]any{
		"name": name,
		"slug": slug,
		"kind": "household",
	}, nil); err != nil {
		return err
	}
	if err := s.responseStatusShouldBe(ctx, http.StatusCreated); err != nil {
		return err
	}
	tenantID, err := tc.GetResponseField("id")
	if err != nil {
		return err
	}
	tc.tenantID = fmt.Sprint(tenantID)
	return tc.bindTenant(owner)
}

func (s *steps) joinsHousehold(ctx context.Context, who, role string) error {
	tc := s.tc()
	manager := tc.current
	member, err := tc.newActor(who)
	if err != nil {
		return err
	}
	tc.current = manager
	if err := tc.Do(http.MethodPost, "/v1/tenants/{tenant}/members", map[string]any{
		"user_id": member.userID.String(),
		"role":    role,
	}, nil); err != nil {
		return err
	}
	if err := s.responseStatusShouldBe(ctx, http.StatusCreated); err != nil {
		return err
	}
	return tc.bindTenant(member)
}

func (s *steps) actAs(ctx context.Context, who string) error {
	tc := s.tc()
	if _, ok := tc.actors[who]; !ok {
		return fmt.Errorf("unknown actor %q", who)
	}
	tc.current = who
	return nil
}

func (s *steps) actAsStranger(ctx context.Context) error {
	tc := s.tc()
	stranger, err := tc.newActor("stranger")
	if err != nil {
		return err
	}
	return tc.bindTenant(stranger)
}

func (s *steps) request(ctx context.Context, method, path string) error {
	return s.tc().Do(method, path, nil, nil)
}

func (s *steps) getWithoutAuth(ctx context.Context, path string) error {
	tc := s.tc()
	current := tc.current
	tc.current = ""
	defer func() { tc.current = current }()
	return tc.Do(http.MethodGet, path, nil, nil)
}

func (s *steps) registerModule(ctx context.Context, moduleID string) error {
	tc := s.tc()
	return tc.Do(http.MethodPost, "/v1/modules", map[string]any{
		"id":      moduleID,
		"name":    moduleID,
		"version": "1.0.0",
	}, map[string]string{"X-Operator-Token": tc.OperatorToken})
}

func (s *steps) enableModule(ctx context.Context, moduleID string) error {
	return s.tc().Do(http.MethodPost, "/v1/tenants/{tenant}/modules/"+moduleID, nil, nil)
}

func (s *steps) disableModule(ctx context.Context, moduleID string) error {
	return s.tc().Do(http.MethodDelete, "/v1/tenants/{tenant}/modules/"+moduleID, nil, nil)
}

func (s *steps) generate(ctx context.Context, moduleID, taskType, prompt string) error {
	return s.tc().Do(http.MethodPost, "/v1/tenants/{tenant}/modules/"+moduleID+"/generate", map[string]any{
		"task_type": taskType,
		"prompt":    prompt,
	}, nil)
}

func (s *steps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	tc := s.tc()
	if tc.LastResponse == nil {
		return fmt.Errorf("no request has been made")
	}
	if tc.LastResponse.StatusCode != expectedStatus {
		return fmt.Errorf("expected status %d but got %d\nResponse: %s", expectedStatus, tc.LastResponse.StatusCode, tc.LastResponseBody)
	}
	return nil
}

func (s *steps) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	actual, err := s.tc().GetResponseField(field)
	if err != nil {
		return err
	}
	if fmt.Sprint(actual) != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actual)
	}
	return nil
}

func (s *steps) usageHistoryCount(ctx context.Context, expected int) error {
	tc := s.tc()
	if err := tc.Do(http.MethodGet, "/v1/usage", nil, nil); err != nil {
		return err
	}
	if err := s.responseStatusShouldBe(ctx, http.StatusOK); err != nil {
		return err
	}
	events, err := tc.usageEvents()
	if err != nil {
		return err
	}
	if len(events) != expected {
		return fmt.Errorf("expected %d usage events but got %d\nResponse: %s", expected, len(events), tc.LastResponseBody)
	}
	return nil
}

func (s *steps) usageHistoryHasAction(ctx context.Context, action string) error {
	tc := s.tc()
	if err := tc.Do(http.MethodGet, "/v1/usage", nil, nil); err != nil {
		return err
	}
	events, err := tc.usageEvents()
	if err != nil {
		return err
	}
	for _, e := range events {
		if e["action"] == action {
			return nil
		}
	}
	return fmt.Errorf("no usage event with action %s\nResponse: %s", action, tc.LastResponseBody)
}
