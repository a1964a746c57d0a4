package prompts

import (
	"fmt"
	"strings"
)

// Example pairs a natural-language question with the SQL that answers it.
// The examples double as the model's only exposure to join paths and date
// idioms, so they cover filters, aggregates, grouping, joins, lookups and
// the follow-up shape where a prior resolution becomes a WHERE subquery.
type Example struct {
	Question string
	SQL      string
}

var defaultExamples = []Example{
	{
		Question: "How many operations were cancelled?",
		SQL:      "SELECT COUNT(*) FROM operacoes_logisticas WHERE status = 'CANCELADO';",
	},
	{
		Question: "What is the total freight value by destination state?",
		SQL:      "SELECT uf_destino, SUM(valor_frete) AS total_frete FROM operacoes_logisticas GROUP BY uf_destino ORDER BY total_frete DESC;",
	},
	{
		Question: "Show me the operations currently in transit.",
		SQL:      "SELECT codigo_rastreio, uf_destino, data_emissao FROM operacoes_logisticas WHERE status = 'EM_TRANSITO' ORDER BY data_emissao DESC;",
	},
	{
		Question: "Which client had the highest merchandise value?",
		SQL:      "SELECT c.nome_razao_social, SUM(o.valor_mercadoria) AS total_mercadoria FROM operacoes_logisticas o JOIN clientes c ON c.id = o.cliente_id GROUP BY c.nome_razao_social ORDER BY total_mercadoria DESC LIMIT 1;",
	},
	{
		Question: "What is the status of tracking code BR123456789?",
		SQL:      "SELECT codigo_rastreio, status, data_emissao, data_entrega_realizada FROM operacoes_logisticas WHERE codigo_rastreio = 'BR123456789';",
	},
	{
		Question: "How many deliveries were completed in July 2024?",
		SQL:      "SELECT COUNT(*) FROM operacoes_logisticas WHERE status = 'ENTREGUE' AND data_entrega_realizada BETWEEN '2024-07-01' AND '2024-07-31';",
	},
	{
		Question: "What is the average delivery time for completed operations?",
		SQL:      "SELECT AVG(data_entrega_realizada - data_emissao) AS prazo_medio FROM operacoes_logisticas WHERE status = 'ENTREGUE';",
	},
	// Follow-up to the highest-merchandise-value question above: the entity
	// resolved there is reused as a WHERE subquery, so rewritten follow-ups
	// like "how many of their operations are in transit?" keep the anchor.
	{
		Question: "How many operations in transit does the client with the highest merchandise value have?",
		SQL:      "SELECT COUNT(*) FROM operacoes_logisticas WHERE status = 'EM_TRANSITO' AND cliente_id = (SELECT o.cliente_id FROM operacoes_logisticas o GROUP BY o.cliente_id ORDER BY SUM(o.valor_mercadoria) DESC LIMIT 1);",
	},
	{
		Question: "How many operations does the client Acme Transportes have?",
		SQL:      "SELECT COUNT(*) FROM operacoes_logisticas o JOIN clientes c ON c.id = o.cliente_id WHERE c.nome_razao_social ILIKE '%Acme Transportes%';",
	},
	{
		Question: "How many operations per day in the last 30 days?",
		SQL:      "SELECT data_emissao::date AS dia, COUNT(*) AS total FROM operacoes_logisticas WHERE data_emissao >= NOW() - INTERVAL '30 days' GROUP BY dia ORDER BY dia;",
	},
}

// FormatExamples renders the few-shot corpus as the block embedded into the
// SQL generation prompt.
func FormatExamples() string {
	var b strings.Builder
	for i, ex := range defaultExamples {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "Question: %s\nSQL: %s", ex.Question, ex.SQL)
	}
	return b.String()
}
