package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// Mock answers prompts from keyword heuristics without network access.
// Generation prompts receive a diagram in the legacy {source,target} shape;
// assistant prompts receive canned help text.
type Mock struct{}

var _ Provider = Mock{}

// NewMock creates the offline provider
func NewMock() Mock {
	return Mock{}
}

// Name identifies the provider in logs and errors
func (Mock) Name() string {
	return "mock"
}

var promptInput = regexp.MustCompile(`(?s)USER (DESCRIPTION|MESSAGE): "(.*?)"\s*\n`)

var diagramKeywords = []string{"diagram", "create", "generate", "show", "draw", "build", "architecture"}

// Generate inspects the quoted user input embedded in prompt
func (m Mock) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	kind, input := "DESCRIPTION", prompt
	if match := promptInput.FindStringSubmatch(prompt); match != nil {
		kind, input = match[1], match[2]
	}

	if kind == "DESCRIPTION" {
		return encodeDiagram(MockDiagram(input))
	}

	lower := strings.ToLower(input)
	switch {
	case containsAny(lower, diagramKeywords...):
		return encodeDiagram(MockDiagram(input))
	case containsAny(lower, "components", "supported"):
		return componentsResponse, nil
	case containsAny(lower, "help", "how"):
		return helpResponse, nil
	default:
		return fmt.Sprintf(generalResponse, input), nil
	}
}

type mockNode struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Label string `json:"label"`
}

type mockConnection struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

type mockCluster struct {
	Name  string   `json:"name"`
	Nodes []string `json:"nodes"`
}

// MockSpec is the legacy wire shape returned by Mock
type MockSpec struct {
	Name        string           `json:"name"`
	Nodes       []mockNode       `json:"nodes"`
	Connections []mockConnection `json:"connections"`
	Clusters    []mockCluster    `json:"clusters,omitempty"`
}

func (s *MockSpec) node(id, nodeType, label string) *MockSpec {
	s.Nodes = append(s.Nodes, mockNode{ID: id, Type: nodeType, Label: label})
	return s
}

func (s *MockSpec) link(source string, targets ...string) *MockSpec {
	for _, t := range targets {
		s.Connections = append(s.Connections, mockConnection{Source: source, Target: t})
	}
	return s
}

func (s *MockSpec) cluster(name string, nodes ...string) *MockSpec {
	s.Clusters = append(s.Clusters, mockCluster{Name: name, Nodes: nodes})
	return s
}

// MockDiagram picks a canned architecture for description. Checks run in a
// fixed order so the first matching pattern wins.
func MockDiagram(description string) *MockSpec {
	d := strings.ToLower(description)

	switch {
	case strings.Contains(d, "nginx") && strings.Contains(d, "api"):
		s := &MockSpec{Name: "Nginx API Architecture"}
		return s.node("user", "onprem_user", "User").
			node("nginx", "aws_alb", "Nginx").
			node("api", "aws_ec2", "API Server").
			node("redis", "onprem_redis", "Redis Cache").
			node("database", "aws_rds", "Database").
			link("user", "nginx").
			link("nginx", "api").
			link("api", "redis", "database")

	case strings.Contains(d, "user") && strings.Contains(d, "api"):
		s := &MockSpec{Name: "User API Architecture"}
		return s.node("user", "onprem_user", "User").
			node("api", "aws_ec2", "API Server").
			node("database", "aws_rds", "Database").
			link("user", "api").
			link("api", "database")

	case strings.Contains(d, "redis"):
		s := &MockSpec{Name: "Redis Cache Architecture"}
		return s.node("api", "aws_ec2", "API Server").
			node("redis", "onprem_redis", "Redis Cache").
			node("database", "aws_rds", "Database").
			link("api", "redis", "database")

	case strings.Contains(d, "database") && strings.Contains(d, "api"):
		s := &MockSpec{Name: "API Database Architecture"}
		return s.node("api", "aws_ec2", "API Server").
			node("database", "aws_rds", "Database").
			link("api", "database")

	case strings.Contains(d, "microservices"):
		s := &MockSpec{Name: "Microservices Architecture"}
		return s.node("gateway", "aws_alb", "API Gateway").
			node("auth", "aws_ec2", "Auth Service").
			node("payment", "aws_ec2", "Payment Service").
			node("order", "aws_ec2", "Order Service").
			node("queue", "aws_sqs", "Message Queue").
			node("db", "aws_rds", "Shared Database").
			node("monitor", "aws_cloudwatch", "Monitoring").
			link("gateway", "auth", "payment", "order").
			link("auth", "db").
			link("payment", "db", "queue").
			link("order", "db", "queue").
			link("monitor", "auth", "payment", "order").
			cluster("Microservices", "auth", "payment", "order")

	case strings.Contains(d, "web app") || strings.Contains(d, "web application"):
		s := &MockSpec{Name: "Web Application Architecture"}
		return s.node("lb", "aws_alb", "Load Balancer").
			node("web1", "aws_ec2", "Web Server 1").
			node("web2", "aws_ec2", "Web Server 2").
			node("db", "aws_rds", "Database").
			link("lb", "web1", "web2").
			link("web1", "db").
			link("web2", "db").
			cluster("Web Tier", "web1", "web2")

	case strings.Contains(d, "database") && strings.Contains(d, "load balancer"):
		s := &MockSpec{Name: "Simple Web Application"}
		return s.node("lb", "aws_alb", "Load Balancer").
			node("web", "aws_ec2", "Web Server").
			node("db", "aws_rds", "Database").
			link("lb", "web").
			link("web", "db")
	}

	s := &MockSpec{Name: "Cloud Architecture"}
	return s.node("web", "aws_ec2", "Application Server").
		node("db", "aws_rds", "Database").
		node("storage", "aws_s3", "File Storage").
		link("web", "db", "storage")
}

func encodeDiagram(s *MockSpec) (string, error) {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return "", fmt.Errorf("mock: encode diagram: %w", err)
	}
	return string(data), nil
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

const componentsResponse = `Here are the supported cloud components:

AWS Services: ec2, rds, alb, elb, sqs, s3, cloudwatch, route53, iam
GCP Services: compute_engine, gke, cloud_sql, gcp_load_balancer
Azure Services: virtual_machines, azure_sql, azure_load_balancer
On-premises: user, redis

You can use these in your architecture descriptions, and I'll map them to the appropriate diagram elements.`

const helpResponse = `I'm a cloud architecture diagram assistant. Here's how I can help:

Create Diagrams: describe your architecture in natural language
  - "Build a web app with load balancer and 2 servers"
  - "Design microservices with API gateway and databases"

Answer Questions: ask about cloud architecture patterns
  - "What's the best way to design a scalable web app?"

List Components: see what cloud services are available
  - "What components are supported?"`

const generalResponse = `I'm here to help with cloud architecture diagrams!

Your message: %q

I can create diagrams from descriptions, explain cloud architecture patterns and list available components.
Try asking me to "create a diagram for..." or "explain how to...".`
