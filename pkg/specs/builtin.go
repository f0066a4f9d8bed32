package specs

import "github.com/weftworks/weft/pkg/models"

// NewDefaultRegistry returns a registry loaded with the specifications of
// every built-in node type.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()

	registerTriggers(r)
	registerActions(r)
	registerAgents(r)
	registerExternalActions(r)
	registerFlow(r)
	registerMemory(r)
	registerHumanInTheLoop(r)

	return r
}

func mainOutput() []models.PortSpec {
	return []models.PortSpec{
		{Name: models.PortMain, Types: []models.ConnectionType{models.ConnectionTypeMain}, MaxConnections: -1},
	}
}

func mainInput() []models.PortSpec {
	return []models.PortSpec{
		{Name: models.PortMain, Types: []models.ConnectionType{models.ConnectionTypeMain}, MaxConnections: -1, Required: true},
	}
}

func registerTriggers(r *Registry) {
	for subtype, desc := range map[string]string{
		models.SubtypeManual:  "Started explicitly by a caller",
		models.SubtypeCron:    "Started on a cron schedule",
		models.SubtypeWebhook: "Started by an inbound webhook",
	} {
		spec := &NodeSpec{
			Type:        models.NodeTypeTrigger,
			Subtype:     subtype,
			Description: desc,
			OutputPorts: mainOutput(),
		}

		if subtype == models.SubtypeCron {
			spec.Parameters = map[string]any{
				"type": "object",
				"properties": map[string]any{
					"cron": map[string]any{
						"type":        "string",
						"description": "Cron expression, e.g. '*/5 * * * *'",
					},
				},
				"required": []string{"cron"},
			}
		}

		r.Register(spec)
	}
}

func registerActions(r *Registry) {
	r.Register(&NodeSpec{
		Type:        models.NodeTypeAction,
		Subtype:     models.SubtypeHTTP,
		Description: "Performs one HTTP request and returns the response",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"url": map[string]any{
					"type":        "string",
					"description": "URL to request; supports {{placeholder}} templating",
				},
				"method": map[string]any{
					"type":    "string",
					"enum":    []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD"},
					"default": "GET",
				},
				"headers": map[string]any{"type": "object"},
				"body":    map[string]any{"type": "string"},
				"timeout_seconds": map[string]any{
					"type":    "number",
					"minimum": 1,
					"maximum": 300,
					"default": 30,
				},
			},
			"required": []string{"url"},
		},
		InputPorts:  mainInput(),
		OutputPorts: mainOutput(),
		Examples: []map[string]any{
			{"url": "https://api.example.com/users", "method": "GET"},
		},
	})

	r.Register(&NodeSpec{
		Type:        models.NodeTypeAction,
		Subtype:     models.SubtypeTransform,
		Description: "Reshapes its input with a data mapping",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"mapping": map[string]any{
					"type":        "object",
					"description": "DataMapping applied to the node input",
				},
			},
			"required": []string{"mapping"},
		},
		InputPorts:  mainInput(),
		OutputPorts: mainOutput(),
	})
}

func registerAgents(r *Registry) {
	r.Register(&NodeSpec{
		Type:        models.NodeTypeAIAgent,
		Subtype:     models.SubtypeLLMChat,
		Description: "Invokes an LLM backend with a prompt built from the node input",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"model":         map[string]any{"type": "string"},
				"prompt":        map[string]any{"type": "string"},
				"system_prompt": map[string]any{"type": "string"},
				"temperature":   map[string]any{"type": "number", "minimum": 0, "maximum": 2},
			},
			"required": []string{"model", "prompt"},
		},
		InputPorts: []models.PortSpec{
			{Name: models.PortMain, Types: []models.ConnectionType{models.ConnectionTypeMain}, MaxConnections: -1, Required: true},
			{Name: "tools", Types: []models.ConnectionType{models.ConnectionTypeAITool}, MaxConnections: -1},
			{Name: "memory", Types: []models.ConnectionType{models.ConnectionTypeAIMemory}, MaxConnections: 1},
		},
		OutputPorts: mainOutput(),
	})
}

func registerExternalActions(r *Registry) {
	for subtype, desc := range map[string]string{
		models.SubtypeSlack:          "Calls the Slack adapter",
		models.SubtypeGitHub:         "Calls the GitHub adapter",
		models.SubtypeGoogleCalendar: "Calls the Google Calendar adapter",
		models.SubtypeEmail:          "Sends email through the email adapter",
	} {
		r.Register(&NodeSpec{
			Type:        models.NodeTypeExternalAction,
			Subtype:     subtype,
			Description: desc,
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"operation": map[string]any{
						"type":        "string",
						"description": "Provider operation name, e.g. 'send_message'",
					},
					"parameters": map[string]any{"type": "object"},
				},
				"required": []string{"operation"},
			},
			InputPorts:  mainInput(),
			OutputPorts: mainOutput(),
		})
	}
}

func registerFlow(r *Registry) {
	r.Register(&NodeSpec{
		Type:        models.NodeTypeFlow,
		Subtype:     models.SubtypeIf,
		Description: "Routes to the true or false branch based on a condition",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"condition": map[string]any{
					"type":        "string",
					"description": "Boolean expression over the node input",
				},
			},
			"required": []string{"condition"},
		},
		InputPorts: mainInput(),
		OutputPorts: []models.PortSpec{
			{Name: models.PortTrue, Types: []models.ConnectionType{models.ConnectionTypeMain}, MaxConnections: -1},
			{Name: models.PortFalse, Types: []models.ConnectionType{models.ConnectionTypeMain}, MaxConnections: -1},
		},
	})

	r.Register(&NodeSpec{
		Type:        models.NodeTypeFlow,
		Subtype:     models.SubtypeFilter,
		Description: "Passes the input through only when the condition matches",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"condition": map[string]any{"type": "string"},
			},
			"required": []string{"condition"},
		},
		InputPorts:  mainInput(),
		OutputPorts: mainOutput(),
	})

	r.Register(&NodeSpec{
		Type:        models.NodeTypeFlow,
		Subtype:     models.SubtypeForEach,
		Description: "Runs the downstream branch once per item of a collection",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"items_source": map[string]any{
					"type":        "string",
					"description": "Path of the collection inside the node input",
				},
			},
			"required": []string{"items_source"},
		},
		InputPorts:  mainInput(),
		OutputPorts: mainOutput(),
	})

	r.Register(&NodeSpec{
		Type:        models.NodeTypeTool,
		Subtype:     models.SubtypeUtility,
		Description: "Small utility operations (echo, uuid, now)",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"operation": map[string]any{
					"type": "string",
					"enum": []string{"echo", "uuid", "now"},
				},
			},
			"required": []string{"operation"},
		},
		InputPorts: []models.PortSpec{
			{Name: models.PortMain, Types: []models.ConnectionType{models.ConnectionTypeMain, models.ConnectionTypeAITool}, MaxConnections: -1},
		},
		OutputPorts: []models.PortSpec{
			{Name: models.PortMain, Types: []models.ConnectionType{models.ConnectionTypeMain, models.ConnectionTypeAITool}, MaxConnections: -1},
		},
	})
}

func registerMemory(r *Registry) {
	r.Register(&NodeSpec{
		Type:        models.NodeTypeMemory,
		Subtype:     models.SubtypeKeyValue,
		Description: "Key-value store operations",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"operation": map[string]any{
					"type": "string",
					"enum": []string{"get", "store", "delete"},
				},
				"key":   map[string]any{"type": "string"},
				"value": map[string]any{},
			},
			"required": []string{"operation", "key"},
		},
		InputPorts: []models.PortSpec{
			{Name: models.PortMain, Types: []models.ConnectionType{models.ConnectionTypeMain, models.ConnectionTypeAIMemory}, MaxConnections: -1},
		},
		OutputPorts: []models.PortSpec{
			{Name: models.PortMain, Types: []models.ConnectionType{models.ConnectionTypeMain, models.ConnectionTypeAIMemory}, MaxConnections: -1},
		},
	})

	r.Register(&NodeSpec{
		Type:        models.NodeTypeMemory,
		Subtype:     models.SubtypeConversationBuffer,
		Description: "Rolling conversation history buffer",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"operation": map[string]any{
					"type": "string",
					"enum": []string{"append", "get", "clear"},
				},
				"session_key": map[string]any{"type": "string"},
				"max_entries": map[string]any{"type": "number", "minimum": 1},
			},
			"required": []string{"operation", "session_key"},
		},
		InputPorts: []models.PortSpec{
			{Name: models.PortMain, Types: []models.ConnectionType{models.ConnectionTypeMain, models.ConnectionTypeAIMemory}, MaxConnections: -1},
		},
		OutputPorts: []models.PortSpec{
			{Name: models.PortMain, Types: []models.ConnectionType{models.ConnectionTypeMain, models.ConnectionTypeAIMemory}, MaxConnections: -1},
		},
	})
}

func registerHumanInTheLoop(r *Registry) {
	r.Register(&NodeSpec{
		Type:        models.NodeTypeHumanInTheLoop,
		Subtype:     models.SubtypeApproval,
		Description: "Pauses the execution until a human responds or the timeout fires",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"channel": map[string]any{
					"type": "string",
					"enum": []string{"slack", "email", "app"},
				},
				"message": map[string]any{"type": "string"},
				"response_timeout": map[string]any{
					"type":    "number",
					"minimum": 1,
				},
			},
			"required": []string{"channel", "message"},
		},
		InputPorts: mainInput(),
		OutputPorts: []models.PortSpec{
			{Name: "confirmed", Types: []models.ConnectionType{models.ConnectionTypeMain}, MaxConnections: -1},
			{Name: "rejected", Types: []models.ConnectionType{models.ConnectionTypeMain}, MaxConnections: -1},
			{Name: "unrelated", Types: []models.ConnectionType{models.ConnectionTypeMain}, MaxConnections: -1},
			{Name: models.PortTimeout, Types: []models.ConnectionType{models.ConnectionTypeMain}, MaxConnections: -1},
		},
	})
}
