package installer

type InstallState struct {
	EnvVars map[string]string
}

func NewInstallState() *InstallState {
	return &InstallState{
		EnvVars: make(map[string]string),
	}
}

func (s *InstallState) Enabled(key string) bool {
	return s.EnvVars[key] == "true"
}
