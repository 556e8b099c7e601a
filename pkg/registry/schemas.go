package registry

import "github.com/maqel/zapflow/pkg/models"

func intPtr(v int) *int {
	return &v
}

func allRegisteredKinds() []*models.RegisteredKind {
	return []*models.RegisteredKind{
		{
			Kind:        models.KindWhatsAppTrigger,
			Name:        "WhatsApp Trigger",
			Description: "Starts the flow when a message arrives on a WhatsApp instance",
			Schema: &models.JSONSchema{
				Type:     "object",
				Title:    "WhatsApp Trigger Configuration",
				Required: []string{"instanceId"},
				Properties: map[string]*models.Property{
					"instanceId": {
						Type:        "string",
						Description: "WhatsApp instance the trigger listens on",
						MinLength:   intPtr(1),
					},
				},
			},
		},
		{
			Kind:        models.KindTypebotTrigger,
			Name:        "Typebot Trigger",
			Description: "Starts the flow when a Typebot session hands over",
			Schema: &models.JSONSchema{
				Type:     "object",
				Title:    "Typebot Trigger Configuration",
				Required: []string{"webhookUrl", "typebotId"},
				Properties: map[string]*models.Property{
					"webhookUrl": {
						Type:        "string",
						Description: "Webhook endpoint Typebot calls on handover",
						Format:      "uri",
					},
					"typebotId": {
						Type:      "string",
						MinLength: intPtr(1),
					},
				},
			},
		},
		{
			Kind:        models.KindCondition,
			Name:        "Condition",
			Description: "Routes the contact along one of several predicate branches",
			Schema: &models.JSONSchema{
				Type:     "object",
				Title:    "Condition Configuration",
				Required: []string{"branches"},
				Properties: map[string]*models.Property{
					"branches": {
						Type:        "array",
						Description: "Ordered predicate branches, each with its own output",
						MaxItems:    intPtr(models.MaxConditionBranches),
						Items: &models.Property{
							Type:     "object",
							Required: []string{"id", "predicateText", "outputId"},
							Properties: map[string]*models.Property{
								"id":            {Type: "string"},
								"predicateText": {Type: "string", MinLength: intPtr(1)},
								"outputId":      {Type: "string", MinLength: intPtr(1)},
							},
						},
					},
				},
			},
		},
		{
			Kind:        models.KindDelay,
			Name:        "Delay",
			Description: "Holds the contact for a fixed interval before continuing",
			Schema: &models.JSONSchema{
				Type:     "object",
				Title:    "Delay Configuration",
				Required: []string{"amount", "unit"},
				Properties: map[string]*models.Property{
					"amount": {
						Type:    "integer",
						Minimum: intPtr(0),
					},
					"unit": {
						Type: "string",
						Enum: []any{"seconds", "minutes", "hours"},
					},
				},
			},
		},
		{
			Kind:        models.KindResponse,
			Name:        "Response",
			Description: "Sends a message to the contact",
			Schema: &models.JSONSchema{
				Type:     "object",
				Title:    "Response Configuration",
				Required: []string{"responseType"},
				Properties: map[string]*models.Property{
					"responseType": {
						Type: "string",
						Enum: []any{
							"text", "image", "image_caption",
							"video", "video_caption", "audio", "file",
						},
					},
					"content":  {Type: "string", Description: "Text body for text responses"},
					"mediaUrl": {Type: "string", Format: "uri"},
					"caption":  {Type: "string"},
					"fileName": {Type: "string"},
				},
			},
		},
		{
			Kind:        models.KindSpreadsheet,
			Name:        "Spreadsheet",
			Description: "Appends contact data to an external spreadsheet",
			Schema: &models.JSONSchema{
				Type:     "object",
				Title:    "Spreadsheet Configuration",
				Required: []string{"sheetName"},
				Properties: map[string]*models.Property{
					"authorized": {Type: "boolean"},
					"sheetName":  {Type: "string", MinLength: intPtr(1)},
				},
			},
		},
		{
			Kind:        models.KindOpenAI,
			Name:        "OpenAI",
			Description: "Generates a reply through an OpenAI model",
			Schema: &models.JSONSchema{
				Type:     "object",
				Title:    "OpenAI Configuration",
				Required: []string{"model", "promptTemplate"},
				Properties: map[string]*models.Property{
					"authorized":     {Type: "boolean"},
					"model":          {Type: "string", MinLength: intPtr(1)},
					"promptTemplate": {Type: "string", MinLength: intPtr(1)},
				},
			},
		},
		{
			Kind:        models.KindEnd,
			Name:        "End",
			Description: "Terminal node, exits the contact from the flow",
			Schema: &models.JSONSchema{
				Type:  "object",
				Title: "End Configuration",
			},
		},
	}
}
