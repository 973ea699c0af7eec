package config

// Settings is the JSON view of the user-adjustable configuration, as exchanged
// with the settings panel over the REST API.
type Settings struct {
	Model         string   `json:"model"`
	ThinkingLevel string   `json:"thinkingLevel"`
	YoloMode      bool     `json:"yoloMode"`
	Debug         bool     `json:"debug"`
	AllowedTools  []string `json:"allowedTools"`
}

// GetSettings returns the current settings snapshot.
func (c *Config) GetSettings() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	tools := make([]string, len(c.AllowedTools))
	copy(tools, c.AllowedTools)

	level := c.ThinkingLevel
	if level == "" {
		level = ThinkingNormal
	}

	return Settings{
		Model:         c.Model,
		ThinkingLevel: string(level),
		YoloMode:      c.YoloMode,
		Debug:         c.Debug,
		AllowedTools:  tools,
	}
}

// ApplySettings overwrites the user-adjustable fields from a settings payload
// and validates the result. The config is unchanged on validation failure.
func (c *Config) ApplySettings(s Settings) error {
	c.mu.Lock()

	prevModel := c.Model
	prevLevel := c.ThinkingLevel
	prevYolo := c.YoloMode
	prevDebug := c.Debug
	prevTools := c.AllowedTools

	c.Model = s.Model
	c.ThinkingLevel = ThinkingLevel(s.ThinkingLevel)
	c.YoloMode = s.YoloMode
	c.Debug = s.Debug
	c.AllowedTools = append([]string{}, s.AllowedTools...)
	c.mu.Unlock()

	if err := c.Validate(); err != nil {
		c.mu.Lock()
		c.Model = prevModel
		c.ThinkingLevel = prevLevel
		c.YoloMode = prevYolo
		c.Debug = prevDebug
		c.AllowedTools = prevTools
		c.mu.Unlock()
		return err
	}
	return nil
}
