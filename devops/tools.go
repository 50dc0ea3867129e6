package devops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/viant/mcp-protocol/schema"
)

// Tool names.
const (
	ToolListProjects     = "list_projects"
	ToolGetProject       = "get_project"
	ToolGetWorkItem      = "get_work_item"
	ToolListRepositories = "list_repositories"
	ToolListPipelines    = "list_pipelines"
)

var errProjectRequired = errors.New("project is required: pass project or set AZURE_DEVOPS_DEFAULT_PROJECT")

type arguments map[string]interface{}

func (a arguments) stringArg(name string) (string, error) {
	value, ok := a[name]
	if !ok || value == nil {
		return "", nil
	}
	text, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", name)
	}
	return strings.TrimSpace(text), nil
}

func (a arguments) intArg(name string) (int, bool, error) {
	value, ok := a[name]
	if !ok || value == nil {
		return 0, false, nil
	}
	switch actual := value.(type) {
	case float64:
		if actual != math.Trunc(actual) {
			return 0, false, fmt.Errorf("%s must be an integer", name)
		}
		return int(actual), true, nil
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(actual))
		if err != nil {
			return 0, false, fmt.Errorf("%s must be an integer", name)
		}
		return parsed, true, nil
	}
	return 0, false, fmt.Errorf("%s must be an integer", name)
}

func get(ctx context.Context, client *Client, path string, query url.Values) (json.RawMessage, error) {
	var result json.RawMessage
	if err := client.Get(ctx, path, query, &result); err != nil {
		return nil, err
	}
	return result, nil
}

type toolHandler func(ctx context.Context, client *Client, args arguments) (json.RawMessage, error)

type tool struct {
	definition schema.Tool
	handler    toolHandler
}

func newTool(name, description string, properties map[string]map[string]interface{}, required []string, handler toolHandler) *tool {
	inputSchema := schema.ToolInputSchema{Type: "object", Required: required}
	if len(properties) > 0 {
		inputSchema.Properties = make(schema.ToolInputSchemaProperties)
		for k, v := range properties {
			inputSchema.Properties[k] = v
		}
	}
	return &tool{
		definition: schema.Tool{Name: name, Description: &description, InputSchema: inputSchema},
		handler:    handler,
	}
}

func projectProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Project name or id; defaults to AZURE_DEVOPS_DEFAULT_PROJECT",
	}
}

func (i *Implementer) project(args arguments) (string, error) {
	project, err := args.stringArg("project")
	if err != nil {
		return "", err
	}
	if project == "" {
		project = i.defaultProject
	}
	if project == "" {
		return "", errProjectRequired
	}
	return project, nil
}

func (i *Implementer) registerTools() {
	i.register(newTool(ToolListProjects, "List projects in the Azure DevOps organization",
		map[string]map[string]interface{}{
			"top": {"type": "integer", "description": "Maximum number of projects to return"},
		}, nil,
		func(ctx context.Context, client *Client, args arguments) (json.RawMessage, error) {
			query := url.Values{}
			top, ok, err := args.intArg("top")
			if err != nil {
				return nil, err
			}
			if ok {
				query.Set("$top", strconv.Itoa(top))
			}
			return get(ctx, client, "_apis/projects", query)
		}))

	i.register(newTool(ToolGetProject, "Get details of an Azure DevOps project",
		map[string]map[string]interface{}{"project": projectProperty()}, nil,
		func(ctx context.Context, client *Client, args arguments) (json.RawMessage, error) {
			project, err := i.project(args)
			if err != nil {
				return nil, err
			}
			return get(ctx, client, "_apis/projects/"+url.PathEscape(project), url.Values{"includeCapabilities": {"true"}})
		}))

	i.register(newTool(ToolGetWorkItem, "Get a work item by id",
		map[string]map[string]interface{}{
			"id":      {"type": "integer", "description": "Work item id"},
			"project": projectProperty(),
		}, []string{"id"},
		func(ctx context.Context, client *Client, args arguments) (json.RawMessage, error) {
			id, ok, err := args.intArg("id")
			if err != nil {
				return nil, err
			}
			if !ok || id <= 0 {
				return nil, errors.New("id must be a positive integer")
			}
			path := "_apis/wit/workitems/" + strconv.Itoa(id)
			if project, _ := i.project(args); project != "" {
				path = url.PathEscape(project) + "/" + path
			}
			return get(ctx, client, path, url.Values{"$expand": {"all"}})
		}))

	i.register(newTool(ToolListRepositories, "List git repositories of a project",
		map[string]map[string]interface{}{"project": projectProperty()}, nil,
		func(ctx context.Context, client *Client, args arguments) (json.RawMessage, error) {
			project, err := i.project(args)
			if err != nil {
				return nil, err
			}
			return get(ctx, client, url.PathEscape(project)+"/_apis/git/repositories", nil)
		}))

	i.register(newTool(ToolListPipelines, "List pipelines of a project",
		map[string]map[string]interface{}{"project": projectProperty()}, nil,
		func(ctx context.Context, client *Client, args arguments) (json.RawMessage, error) {
			project, err := i.project(args)
			if err != nil {
				return nil, err
			}
			return get(ctx, client, url.PathEscape(project)+"/_apis/pipelines", nil)
		}))
}
