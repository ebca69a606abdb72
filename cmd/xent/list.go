package main

// ListCmd prints every registered generator and judge back-end.
type ListCmd struct{}

func (l *ListCmd) Run() error {
	listCapabilities()
	return nil
}
