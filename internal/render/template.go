package render

// defaultTemplate is the built-in email layout. Kept deliberately plain:
// table-based markup renders consistently across email clients.
const defaultTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{ subject | escape }}</title>
</head>
<body style="margin:0;padding:0;background:#f4f4f4;font-family:Helvetica,Arial,sans-serif;">
<span style="display:none;max-height:0;overflow:hidden;">{{ preheader | escape }}</span>
<table role="presentation" width="100%" cellpadding="0" cellspacing="0">
<tr><td align="center" style="padding:24px 12px;">
<table role="presentation" width="600" cellpadding="0" cellspacing="0" style="background:#ffffff;">

{% if hero.image_url != "" %}
<tr><td><img src="{{ hero.image_url }}" width="600" alt="" style="display:block;width:100%;"></td></tr>
{% endif %}
<tr><td style="padding:32px 32px 8px;">
<h1 style="margin:0;font-size:28px;">{{ hero.title | escape }}</h1>
{% if hero.subtitle != "" %}<p style="margin:8px 0 0;color:#555;font-size:16px;">{{ hero.subtitle | escape }}</p>{% endif %}
</td></tr>
{% if hero.cta_url != "" %}
<tr><td style="padding:16px 32px 0;">
<a href="{{ hero.cta_url }}" style="display:inline-block;padding:12px 24px;background:#1a1a2e;color:#ffffff;text-decoration:none;">{{ hero.cta_label | escape }}</a>
</td></tr>
{% endif %}

<tr><td style="padding:24px 32px 0;font-size:16px;color:#333;">
<p style="margin:0;">Hi {{ first_name | default: "there" }},</p>
{% if intro_text != "" %}<p>{{ intro_text | escape }}</p>{% endif %}
</td></tr>

{% for block in blocks %}
<tr><td style="padding:24px 32px 0;">
{% if block.heading != "" %}<h2 style="margin:0 0 8px;font-size:20px;">{{ block.heading | escape }}</h2>{% endif %}
{% if block.description != "" %}<p style="margin:0 0 12px;color:#555;">{{ block.description | escape }}</p>{% endif %}
{% if block.event %}
<h3 style="margin:0;font-size:18px;">{{ block.event.title | escape }}</h3>
<p style="margin:4px 0;color:#777;">{{ block.event.starts_at | event_date }}</p>
{% if block.event.image_url != "" %}<img src="{{ block.event.image_url }}" width="536" alt="" style="display:block;width:100%;">{% endif %}
<p style="margin:8px 0;color:#333;">{{ block.event.description | escape }}</p>
{% if block.event.ticket_url != "" %}<a href="{{ block.event.ticket_url }}" style="color:#1a1a2e;">Get tickets &rarr;</a>{% endif %}
{% endif %}
{% if block.article %}
<h3 style="margin:0;font-size:18px;">{{ block.article.title | escape }}</h3>
{% if block.article.image_url != "" %}<img src="{{ block.article.image_url }}" width="536" alt="" style="display:block;width:100%;">{% endif %}
<p style="margin:8px 0;color:#333;">{{ block.article.teaser | escape }}</p>
{% endif %}
</td></tr>
{% endfor %}

<tr><td style="padding:32px;color:#999;font-size:12px;">
<p style="margin:0;">You are receiving this because you subscribed to our newsletter.</p>
<p style="margin:8px 0 0;"><a href="{{ unsubscribe_url }}" style="color:#999;">Unsubscribe</a></p>
</td></tr>

</table>
</td></tr>
</table>
</body>
</html>`
