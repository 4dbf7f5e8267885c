package cli

var HealthCmd = healthCmd
