package vendoring

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/temirov/vendman/internal/filesystem"
	"github.com/temirov/vendman/internal/gitrepo"
	"github.com/temirov/vendman/internal/scm"
	"github.com/temirov/vendman/internal/utils/flags"
)

// List output formats.
const (
	ListFormatTable = "table"
	ListFormatCSV   = "csv"
	ListFormatYAML  = "yaml"
	ListFormatJSON  = "json"
)

const (
	initCommandUseConstant              = "init"
	initCommandShortConstant            = "Create the vendman root and an empty manifest"
	initCommandLongConstant             = "init creates the managed root directory and an empty manifest. Running it again leaves an existing manifest untouched."
	vendCommandUseConstant              = "vend"
	vendCommandShortConstant            = "Clone a repository into the root and declare it"
	vendCommandLongConstant             = "vend clones a repository into the managed root and records it in the manifest. Without --branch the dependency follows the upstream default branch; an existing dependency with the same name is replaced."
	updateCommandUseConstant            = "update"
	updateCommandShortConstant          = "Synchronize every declared dependency with its upstream"
	updateCommandLongConstant           = "update fetches every declared dependency and moves its checked-out branch to the upstream head. A failing dependency is reported and does not stop the others."
	listCommandUseConstant              = "list"
	listCommandShortConstant            = "Show the checked-out reference of every dependency"
	listCommandLongConstant             = "list reports the declared branch, the checked-out reference and the commit of every declared dependency, sorted by name."
	removeCommandUseConstant            = "remove <name>"
	removeCommandShortConstant          = "Remove a dependency and its workspace"
	removeCommandLongConstant           = "remove deletes a dependency from the manifest and removes its clone from the managed root."
	cleanCommandUseConstant             = "clean"
	cleanCommandShortConstant           = "Remove the vendman root with every dependency"
	cleanCommandLongConstant            = "clean deletes the managed root, including the manifest and every vended clone."
	repositoryFlagNameConstant          = "repository"
	repositoryFlagShorthandConstant     = "r"
	repositoryFlagDescriptionConstant   = "Repository to vend (URL, scp-style address or local path)"
	branchFlagNameConstant              = "branch"
	branchFlagShorthandConstant         = "b"
	branchFlagDescriptionConstant       = "Branch to pin the dependency to"
	formatFlagNameConstant              = "format"
	formatFlagDescriptionConstant       = "Output format"
	initializedMessageTemplateConstant  = "INITIALIZED: %s\n"
	alreadyInitializedTemplateConstant  = "ALREADY INITIALIZED: %s\n"
	vendedMessageTemplateConstant       = "VENDED: %s\n"
	vendedPinnedMessageTemplateConstant = "VENDED: %s (%s)\n"
	updatedMessageTemplateConstant      = "UPDATED: %s\n"
	updatedPinnedMessageTemplate        = "UPDATED: %s (%s)\n"
	failedMessageTemplateConstant       = "FAILED: %s: %v\n"
	removedMessageTemplateConstant      = "REMOVED: %s\n"
	removedWithoutWorkspaceTemplate     = "REMOVED: %s (no workspace)\n"
	cleanedMessageTemplateConstant      = "CLEANED: %s\n"
	updateIncompleteTemplateConstant    = "%w: %d of %d failed"
	tableRowTemplateConstant            = "%s\t%s\t%s\t%s\t%s\n"
	tableHeaderNameConstant             = "NAME"
	tableHeaderDeclaredConstant         = "DECLARED"
	tableHeaderReferenceConstant        = "REFERENCE"
	tableHeaderCommitConstant           = "COMMIT"
	tableHeaderStatusConstant           = "STATUS"
	csvHeaderSourceConstant             = "SOURCE"
	tablePlaceholderConstant            = "-"
	tableStatusOKConstant               = "ok"
	tableMinimumWidthConstant           = 0
	tableTabWidthConstant               = 4
	tablePaddingConstant                = 2
	tablePaddingCharacter               = ' '
	abbreviatedCommitLengthConstant     = 12
	jsonIndentConstant                  = "  "
	yamlIndentConstant                  = 2
)

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// CommandBuilder assembles the vendman subcommands. The optional collaborators replace the
// defaults built from configuration.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() Configuration
	GitExecutor                  gitrepo.GitExecutor
	Provider                     scm.Provider
	Store                        ManifestStore
	FileSystem                   filesystem.FileSystem
}

// Build constructs the init, vend, update, list, remove and clean commands.
func (builder *CommandBuilder) Build() ([]*cobra.Command, error) {
	return []*cobra.Command{
		builder.buildInitCommand(),
		builder.buildVendCommand(),
		builder.buildUpdateCommand(),
		builder.buildListCommand(),
		builder.buildRemoveCommand(),
		builder.buildCleanCommand(),
	}, nil
}

func (builder *CommandBuilder) buildInitCommand() *cobra.Command {
	return &cobra.Command{
		Use:   initCommandUseConstant,
		Short: initCommandShortConstant,
		Long:  initCommandLongConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runInit,
	}
}

func (builder *CommandBuilder) buildVendCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   vendCommandUseConstant,
		Short: vendCommandShortConstant,
		Long:  vendCommandLongConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runVend,
	}
	command.Flags().StringP(repositoryFlagNameConstant, repositoryFlagShorthandConstant, "", repositoryFlagDescriptionConstant)
	command.Flags().StringP(branchFlagNameConstant, branchFlagShorthandConstant, "", branchFlagDescriptionConstant)
	_ = command.MarkFlagRequired(repositoryFlagNameConstant)
	return command
}

func (builder *CommandBuilder) buildUpdateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   updateCommandUseConstant,
		Short: updateCommandShortConstant,
		Long:  updateCommandLongConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runUpdate,
	}
}

func (builder *CommandBuilder) buildListCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   listCommandUseConstant,
		Short: listCommandShortConstant,
		Long:  listCommandLongConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runList,
	}
	var outputFormat string
	flags.AddChoiceFlag(
		command.Flags(),
		&outputFormat,
		formatFlagNameConstant,
		"",
		ListFormatTable,
		[]string{ListFormatTable, ListFormatCSV, ListFormatYAML, ListFormatJSON},
		formatFlagDescriptionConstant,
	)
	return command
}

func (builder *CommandBuilder) buildRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   removeCommandUseConstant,
		Short: removeCommandShortConstant,
		Long:  removeCommandLongConstant,
		Args:  cobra.ExactArgs(1),
		RunE:  builder.runRemove,
	}
}

func (builder *CommandBuilder) buildCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   cleanCommandUseConstant,
		Short: cleanCommandShortConstant,
		Long:  cleanCommandLongConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runClean,
	}
}

func (builder *CommandBuilder) runInit(command *cobra.Command, arguments []string) error {
	service, serviceError := builder.buildService()
	if serviceError != nil {
		return serviceError
	}

	result, initializeError := service.Initialize()
	if initializeError != nil {
		return initializeError
	}
	if result.Created {
		fmt.Fprintf(command.OutOrStdout(), initializedMessageTemplateConstant, result.RootDirectory)
		return nil
	}
	fmt.Fprintf(command.OutOrStdout(), alreadyInitializedTemplateConstant, result.RootDirectory)
	return nil
}

func (builder *CommandBuilder) runVend(command *cobra.Command, arguments []string) error {
	repositoryLocator, repositoryFlagError := command.Flags().GetString(repositoryFlagNameConstant)
	if repositoryFlagError != nil {
		return repositoryFlagError
	}
	branchName, branchFlagError := command.Flags().GetString(branchFlagNameConstant)
	if branchFlagError != nil {
		return branchFlagError
	}

	service, serviceError := builder.buildService()
	if serviceError != nil {
		return serviceError
	}

	result, vendError := service.Vend(command.Context(), VendOptions{Locator: repositoryLocator, Branch: branchName})
	if vendError != nil {
		return vendError
	}
	if len(result.Branch) > 0 {
		fmt.Fprintf(command.OutOrStdout(), vendedPinnedMessageTemplateConstant, result.Name, result.Branch)
		return nil
	}
	fmt.Fprintf(command.OutOrStdout(), vendedMessageTemplateConstant, result.Name)
	return nil
}

func (builder *CommandBuilder) runUpdate(command *cobra.Command, arguments []string) error {
	service, serviceError := builder.buildService()
	if serviceError != nil {
		return serviceError
	}

	outcomes, updateError := service.Update(command.Context())
	if updateError != nil {
		return updateError
	}

	failedCount := 0
	for _, outcome := range outcomes {
		switch {
		case !outcome.Succeeded():
			failedCount++
			fmt.Fprintf(command.OutOrStdout(), failedMessageTemplateConstant, outcome.Name, outcome.Failure)
		case len(outcome.Reference) > 0:
			fmt.Fprintf(command.OutOrStdout(), updatedPinnedMessageTemplate, outcome.Name, outcome.Reference)
		default:
			fmt.Fprintf(command.OutOrStdout(), updatedMessageTemplateConstant, outcome.Name)
		}
	}
	if failedCount > 0 {
		return fmt.Errorf(updateIncompleteTemplateConstant, ErrUpdateIncomplete, failedCount, len(outcomes))
	}
	return nil
}

func (builder *CommandBuilder) runList(command *cobra.Command, arguments []string) error {
	outputFormat := ListFormatTable
	if formatFlag := command.Flags().Lookup(formatFlagNameConstant); formatFlag != nil {
		outputFormat = formatFlag.Value.String()
	}

	service, serviceError := builder.buildService()
	if serviceError != nil {
		return serviceError
	}

	rows, listError := service.List(command.Context())
	if listError != nil {
		return listError
	}
	return renderListRows(command.OutOrStdout(), outputFormat, rows)
}

func (builder *CommandBuilder) runRemove(command *cobra.Command, arguments []string) error {
	service, serviceError := builder.buildService()
	if serviceError != nil {
		return serviceError
	}

	result, removeError := service.Remove(command.Context(), arguments[0])
	if removeError != nil {
		return removeError
	}
	if result.WorkspaceRemoved {
		fmt.Fprintf(command.OutOrStdout(), removedMessageTemplateConstant, result.Name)
		return nil
	}
	fmt.Fprintf(command.OutOrStdout(), removedWithoutWorkspaceTemplate, result.Name)
	return nil
}

func (builder *CommandBuilder) runClean(command *cobra.Command, arguments []string) error {
	service, serviceError := builder.buildService()
	if serviceError != nil {
		return serviceError
	}

	if cleanError := service.Clean(command.Context()); cleanError != nil {
		return cleanError
	}
	fmt.Fprintf(command.OutOrStdout(), cleanedMessageTemplateConstant, service.store.RootDirectory())
	return nil
}

func (builder *CommandBuilder) buildService() (*Service, error) {
	configuration := builder.resolveConfiguration()
	logger := builder.resolveLogger()
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}

	fileSystem := ResolveFileSystem(builder.FileSystem)
	store, storeError := ResolveStore(builder.Store, configuration, fileSystem, logger)
	if storeError != nil {
		return nil, storeError
	}

	var gitExecutor gitrepo.GitExecutor
	if builder.Provider == nil && normalizeProviderName(configuration.Provider) != ProviderEmbedded {
		resolvedExecutor, executorError := ResolveGitExecutor(builder.GitExecutor, logger, humanReadableLogging)
		if executorError != nil {
			return nil, executorError
		}
		gitExecutor = resolvedExecutor
	}
	provider, providerError := ResolveProvider(builder.Provider, configuration.Provider, gitExecutor, logger)
	if providerError != nil {
		return nil, providerError
	}

	return NewService(Dependencies{Store: store, Provider: provider, FileSystem: fileSystem, Logger: logger}, configuration.Settings())
}

func (builder *CommandBuilder) resolveConfiguration() Configuration {
	if builder.ConfigurationProvider == nil {
		return DefaultConfiguration()
	}
	return builder.ConfigurationProvider().Sanitize()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}

type listRecord struct {
	Name      string `json:"name" yaml:"name"`
	Source    string `json:"source" yaml:"source"`
	Declared  string `json:"declared,omitempty" yaml:"declared,omitempty"`
	Reference string `json:"reference,omitempty" yaml:"reference,omitempty"`
	Commit    string `json:"commit,omitempty" yaml:"commit,omitempty"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

func newListRecord(row ListRow) listRecord {
	record := listRecord{
		Name:      row.Name,
		Source:    row.Source,
		Declared:  row.Declared,
		Reference: row.Reference,
		Commit:    row.Commit,
	}
	if row.Failure != nil {
		record.Error = row.Failure.Error()
	}
	return record
}

func renderListRows(writer io.Writer, outputFormat string, rows []ListRow) error {
	records := make([]listRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, newListRecord(row))
	}

	switch strings.ToLower(strings.TrimSpace(outputFormat)) {
	case ListFormatJSON:
		encoder := json.NewEncoder(writer)
		encoder.SetIndent("", jsonIndentConstant)
		return encoder.Encode(records)
	case ListFormatYAML:
		encoder := yaml.NewEncoder(writer)
		encoder.SetIndent(yamlIndentConstant)
		if encodeError := encoder.Encode(records); encodeError != nil {
			return encodeError
		}
		return encoder.Close()
	case ListFormatCSV:
		return renderCSV(writer, records)
	default:
		return renderTable(writer, records)
	}
}

func renderTable(writer io.Writer, records []listRecord) error {
	tableWriter := tabwriter.NewWriter(writer, tableMinimumWidthConstant, tableTabWidthConstant, tablePaddingConstant, tablePaddingCharacter, 0)
	fmt.Fprintf(tableWriter, tableRowTemplateConstant, tableHeaderNameConstant, tableHeaderDeclaredConstant, tableHeaderReferenceConstant, tableHeaderCommitConstant, tableHeaderStatusConstant)
	for _, record := range records {
		status := tableStatusOKConstant
		if len(record.Error) > 0 {
			status = record.Error
		}
		fmt.Fprintf(
			tableWriter,
			tableRowTemplateConstant,
			record.Name,
			placeholderIfEmpty(record.Declared),
			placeholderIfEmpty(record.Reference),
			placeholderIfEmpty(abbreviateCommit(record.Commit)),
			status,
		)
	}
	return tableWriter.Flush()
}

func renderCSV(writer io.Writer, records []listRecord) error {
	csvWriter := csv.NewWriter(writer)
	header := []string{
		tableHeaderNameConstant,
		csvHeaderSourceConstant,
		tableHeaderDeclaredConstant,
		tableHeaderReferenceConstant,
		tableHeaderCommitConstant,
		tableHeaderStatusConstant,
	}
	if writeError := csvWriter.Write(header); writeError != nil {
		return writeError
	}
	for _, record := range records {
		status := tableStatusOKConstant
		if len(record.Error) > 0 {
			status = record.Error
		}
		if writeError := csvWriter.Write([]string{record.Name, record.Source, record.Declared, record.Reference, record.Commit, status}); writeError != nil {
			return writeError
		}
	}
	csvWriter.Flush()
	return csvWriter.Error()
}

func placeholderIfEmpty(value string) string {
	if len(value) == 0 {
		return tablePlaceholderConstant
	}
	return value
}

func abbreviateCommit(commit string) string {
	if len(commit) > abbreviatedCommitLengthConstant {
		return commit[:abbreviatedCommitLengthConstant]
	}
	return commit
}
