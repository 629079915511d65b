package promptmgr

import "assettool/internal/domain"

// DefaultTemplates are written to an empty template store on Init.
func DefaultTemplates() []domain.PromptTemplate {
	return []domain.PromptTemplate{
		{
			Name:        "Landscape Photography",
			Description: "Professional landscape photography template",
			AssetType:   domain.AssetTypeImage,
			Category:    "landscape",
			Components: []domain.TemplateComponent{
				{Type: domain.ComponentSubject, Label: "Scene", Description: "Main landscape elements"},
				{Type: domain.ComponentLighting, Label: "Lighting", Description: "Time of day and lighting conditions"},
				{Type: domain.ComponentCamera, Label: "Camera Settings", Description: "Camera angle and lens type"},
				{Type: domain.ComponentQuality, Label: "Quality", Description: "Resolution and detail level"},
			},
			ExamplePrompt: "Majestic mountain landscape with snow-capped peaks, golden hour lighting, wide-angle shot, 4k resolution, highly detailed",
			Tags:          []string{"nature", "mountains", "photography"},
		},
		{
			Name:        "Portrait Art",
			Description: "Artistic portrait template",
			AssetType:   domain.AssetTypeImage,
			Category:    "portrait",
			Components: []domain.TemplateComponent{
				{Type: domain.ComponentSubject, Label: "Subject", Description: "Person or character description"},
				{Type: domain.ComponentStyle, Label: "Art Style", Description: "Artistic style or medium"},
				{Type: domain.ComponentComposition, Label: "Composition", Description: "Framing and pose"},
				{Type: domain.ComponentMood, Label: "Mood", Description: "Emotional tone"},
			},
			ExamplePrompt: "Portrait of a wise elderly person, oil painting style, close-up composition, contemplative mood, soft lighting",
			Tags:          []string{"portrait", "art", "character"},
		},
		{
			Name:        "Video Scene",
			Description: "Cinematic video scene template",
			AssetType:   domain.AssetTypeVideo,
			Category:    "cinematic",
			Components: []domain.TemplateComponent{
				{Type: domain.ComponentSubject, Label: "Scene", Description: "Main action or subject"},
				{Type: domain.ComponentCamera, Label: "Camera Movement", Description: "Camera motion and angles"},
				{Type: domain.ComponentLighting, Label: "Lighting", Description: "Cinematic lighting setup"},
				{Type: domain.ComponentMood, Label: "Atmosphere", Description: "Overall mood and tone"},
			},
			ExamplePrompt: "Cinematic scene of a person walking through a forest, smooth camera tracking, dramatic lighting with sun rays, mysterious atmosphere",
			Tags:          []string{"cinematic", "nature", "movement"},
		},
	}
}
